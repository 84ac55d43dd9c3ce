package response

// User-facing messages. Raw provider errors never reach the user; each
// failure category maps to one of these.
const (
	MsgNoRelevantInfo = "I couldn't find relevant information in the uploaded document to answer that question. Try rephrasing, or check that the document covers this topic."

	MsgTimeout = "Sorry, generating the answer took too long. Please try again; shorter questions usually respond faster."

	MsgQuota = "Sorry, the answering service is receiving too many requests right now. Please wait a moment and try again."

	MsgAuthConfig = "Sorry, the answering service is not configured correctly. Please contact the administrator."

	MsgGeneric = "Sorry, something went wrong while composing the answer. Please try again."

	TruncationNotice = "\n\n[Answer truncated due to length]"

	GroundingDisclaimer = "\n\nNote: this answer is based solely on the uploaded document. For more detail, please consult the source document directly."
)

// genericPhrases flag model responses that refused to engage rather than
// answering from context. Matching is on the lowercased response.
var genericPhrases = []string{
	"i can't",
	"i cannot",
	"i don't have",
	"no information",
	"cannot find",
	"not mentioned in",
	"unable to answer",
}
