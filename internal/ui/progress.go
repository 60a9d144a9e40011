package ui

import (
	"io"
	"sync"
)

const (
	progressEllipsisConstant = "..."
	progressEndConstant      = "\n"
)

// ConsoleProgressIndicator prints a status line while a request is in flight.
type ConsoleProgressIndicator struct {
	mutex  sync.Mutex
	writer io.Writer
	active bool
}

// NewConsoleProgressIndicator constructs an indicator writing to the provided writer; nil disables output.
func NewConsoleProgressIndicator(writer io.Writer) *ConsoleProgressIndicator {
	return &ConsoleProgressIndicator{writer: writer}
}

// Start prints the message. A second Start before Stop is ignored.
func (indicator *ConsoleProgressIndicator) Start(message string) {
	indicator.mutex.Lock()
	defer indicator.mutex.Unlock()
	if indicator.active || indicator.writer == nil {
		return
	}
	indicator.active = true
	_, _ = io.WriteString(indicator.writer, message+progressEllipsisConstant)
}

// Stop ends the status line without reporting an outcome; calling it without a matching Start does nothing.
func (indicator *ConsoleProgressIndicator) Stop() {
	indicator.mutex.Lock()
	defer indicator.mutex.Unlock()
	if !indicator.active {
		return
	}
	indicator.active = false
	_, _ = io.WriteString(indicator.writer, progressEndConstant)
}

// Active reports whether the indicator is currently shown.
func (indicator *ConsoleProgressIndicator) Active() bool {
	indicator.mutex.Lock()
	defer indicator.mutex.Unlock()
	return indicator.active
}
