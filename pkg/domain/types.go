package domain

// ChatRole identifies the speaker of a chat turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Book is one listed title in the storefront catalog. Books are immutable
// once created; there is no update or delete operation.
type Book struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	CoverImageURL string  `json:"coverImageUrl"`
	PDFURL        string  `json:"pdfUrl"`
	PayPalLink    string  `json:"payPalLink"`
	PageCount     int     `json:"pageCount,omitempty"`
}

// Identity is the decoded author identity held for the duration of a session.
type Identity struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// ChatTurn is one entry in an assistant transcript.
type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
