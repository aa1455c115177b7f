package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Interaction is one analyzed question. ImageSource is the file path or URL
// the image came from, or "inline" for images sent as data.
type Interaction struct {
	ID          string
	CreatedAt   time.Time
	ImageSource string
	Question    string
	Answer      string
	Status      string
	Error       string
}
