package response

var (
	pageBadRequest = []byte("<html><body>\n" +
		"<h2>Malformed Request</h2>\n" +
		"Your browser sent a request I could not understand.\n" +
		"</body></html>")

	pageForbidden = []byte("<html><body>\n" +
		"<h2>Permission Denied</h2>\n" +
		"You asked for a document you are not permitted to see. It sucks to be you.\n" +
		"</body></html>")

	pageNotFound = []byte("<html><body>\n" +
		"<h2>Document not found</h2>\n" +
		"You asked for a document that doesn't exist. That is so sad.\n" +
		"</body></html>")

	// 405 and 500 share a page.
	pageFailure = []byte("<html><body>\n" +
		"<h2>Oops. That Didn't work</h2>\n" +
		"I had some sort of problem dealing with your request. Sorry, I'm lame.\n" +
		"</body></html>")
)

// Page returns the fixed HTML body sent with a status. Unknown statuses get
// the generic failure page.
func Page(statusCode StatusCode) []byte {
	switch statusCode {
	case StatusBadRequest:
		return pageBadRequest
	case StatusForbidden:
		return pageForbidden
	case StatusNotFound:
		return pageNotFound
	default:
		return pageFailure
	}
}
