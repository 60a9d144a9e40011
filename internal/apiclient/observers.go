package apiclient

import "time"

// MultiObserver fans request events out to several observers in order.
type MultiObserver []RequestObserver

// NewMultiObserver drops nil observers and returns the combined observer.
func NewMultiObserver(observers ...RequestObserver) MultiObserver {
	combined := make(MultiObserver, 0, len(observers))
	for _, observer := range observers {
		if observer != nil {
			combined = append(combined, observer)
		}
	}
	return combined
}

// RequestStarted notifies every observer.
func (observers MultiObserver) RequestStarted(event RequestEvent) {
	for _, observer := range observers {
		observer.RequestStarted(event)
	}
}

// RequestCompleted notifies every observer.
func (observers MultiObserver) RequestCompleted(event RequestEvent, statusCode int, duration time.Duration) {
	for _, observer := range observers {
		observer.RequestCompleted(event, statusCode, duration)
	}
}

// RequestFailed notifies every observer.
func (observers MultiObserver) RequestFailed(event RequestEvent, failure error, duration time.Duration) {
	for _, observer := range observers {
		observer.RequestFailed(event, failure, duration)
	}
}
