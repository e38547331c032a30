package dispatcher

import "fmt"

// PageError is a fatal recognition failure for one page.
type PageError struct {
	Page     int
	Provider string
	Err      error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("recognition of page %d via %s failed: %v", e.Page, e.Provider, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
