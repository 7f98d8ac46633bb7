package summary

import "strings"

// stopWords is the English stop-word list stripped from the corpus before
// summarizing.
var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "across": {}, "after": {}, "afterwards": {},
	"again": {}, "against": {}, "all": {}, "almost": {}, "alone": {}, "along": {},
	"already": {}, "also": {}, "although": {}, "always": {}, "am": {}, "among": {},
	"amongst": {}, "amount": {}, "an": {}, "and": {}, "another": {}, "any": {},
	"anyhow": {}, "anyone": {}, "anything": {}, "anyway": {}, "anywhere": {},
	"are": {}, "around": {}, "as": {}, "at": {},

	"back": {}, "be": {}, "became": {}, "because": {}, "become": {}, "becomes": {},
	"becoming": {}, "been": {}, "before": {}, "beforehand": {}, "behind": {},
	"being": {}, "below": {}, "beside": {}, "besides": {}, "between": {},
	"beyond": {}, "both": {}, "but": {}, "by": {},

	"can": {}, "cannot": {}, "could": {},

	"did": {}, "do": {}, "does": {}, "doing": {}, "done": {}, "down": {}, "due": {},
	"during": {},

	"each": {}, "either": {}, "else": {}, "elsewhere": {}, "enough": {}, "etc": {},
	"even": {}, "ever": {}, "every": {}, "everyone": {}, "everything": {},
	"everywhere": {}, "except": {},

	"few": {}, "for": {}, "former": {}, "formerly": {}, "from": {}, "further": {},

	"had": {}, "has": {}, "have": {}, "he": {}, "hence": {}, "her": {}, "here": {},
	"hereafter": {}, "hereby": {}, "herein": {}, "hers": {}, "herself": {}, "him": {},
	"himself": {}, "his": {}, "how": {}, "however": {},

	"i": {}, "if": {}, "in": {}, "indeed": {}, "into": {}, "is": {}, "it": {},
	"its": {}, "itself": {},

	"just": {}, "last": {}, "latter": {}, "least": {}, "less": {},

	"made": {}, "many": {}, "may": {}, "me": {}, "meanwhile": {}, "might": {},
	"more": {}, "moreover": {}, "most": {}, "mostly": {}, "much": {}, "must": {},
	"my": {}, "myself": {},

	"namely": {}, "neither": {}, "never": {}, "nevertheless": {}, "next": {},
	"no": {}, "nobody": {}, "none": {}, "nor": {}, "not": {}, "nothing": {},
	"now": {}, "nowhere": {},

	"of": {}, "off": {}, "often": {}, "on": {}, "once": {}, "only": {}, "onto": {},
	"or": {}, "other": {}, "others": {}, "otherwise": {}, "our": {}, "ours": {},
	"ourselves": {}, "out": {}, "over": {}, "own": {},

	"per": {}, "perhaps": {}, "please": {}, "rather": {}, "re": {},

	"same": {}, "seem": {}, "seemed": {}, "seeming": {}, "seems": {}, "several": {},
	"she": {}, "should": {}, "since": {}, "so": {}, "some": {}, "somehow": {},
	"someone": {}, "something": {}, "sometime": {}, "sometimes": {}, "somewhere": {},
	"still": {}, "such": {},

	"than": {}, "that": {}, "the": {}, "their": {}, "them": {}, "themselves": {},
	"then": {}, "thence": {}, "there": {}, "thereafter": {}, "thereby": {},
	"therefore": {}, "therein": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"though": {}, "through": {}, "throughout": {}, "thus": {}, "to": {},
	"together": {}, "too": {}, "toward": {}, "towards": {},

	"under": {}, "unless": {}, "until": {}, "up": {}, "upon": {}, "us": {},

	"very": {}, "via": {},

	"was": {}, "we": {}, "well": {}, "were": {}, "what": {}, "whatever": {},
	"when": {}, "whence": {}, "whenever": {}, "where": {}, "whereas": {},
	"whereby": {}, "wherein": {}, "whether": {}, "which": {}, "while": {},
	"who": {}, "whoever": {}, "whole": {}, "whom": {}, "whose": {}, "why": {},
	"will": {}, "with": {}, "within": {}, "without": {}, "would": {},

	"yet": {}, "you": {}, "your": {}, "yours": {}, "yourself": {}, "yourselves": {},
}

// IsStopWord reports whether word is a stop word, ignoring case.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

// RemoveStopWords drops every whitespace-separated token that is a stop word
// and joins the rest with single spaces. Line breaks are not preserved.
func RemoveStopWords(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if !IsStopWord(f) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
