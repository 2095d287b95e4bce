package dispatch

// Textos enviados ao usuário.
const (
	ReplyRateLimited   = "You have exceeded the rate limit. Please wait a few minutes before asking again."
	ReplyBusy          = "Sorry, I am already working on a request in this thread. Please wait for the current request to finish. And then ask your question."
	ReplyFailed        = "Sorry, I was not able to process your request. Please try again."
	ReplyThreadFailed  = "Sorry, I was not able to create a thread."
	ReplyOverloaded    = "Sorry, I am handling too many requests right now. Please try again in a minute."
	ReplyEmptyAnswer   = "Sorry, I don't have an answer for that."
	ReplyNoQuestion    = "Please provide a question by tagging me."
	ReplyEmptyQuestion = "Please provide a question."
	ReplyWrongChannel  = "Please message me in a channel to start a discussion."
)
