// Package printerr defines the error taxonomy shared by the image loader,
// the geometry converter and the print job driver.
package printerr

import (
	"fmt"
)

// InvalidImageError reports an image that cannot be printed: missing,
// undecodable, or with a zero dimension.
type InvalidImageError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidImageError) Error() string {
	msg := "invalid image"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidImageError) Unwrap() error {
	return e.Err
}

// UnsupportedRotationError reports a rotation outside 0, 90, 180 and 270 degrees.
type UnsupportedRotationError struct {
	Degrees int
}

func (e *UnsupportedRotationError) Error() string {
	return fmt.Sprintf("unsupported rotation: %d (valid options: 0, 90, 180, 270)", e.Degrees)
}

// PrinterNotFoundError reports a printer name that does not resolve to an
// installed device. An empty Name means no default printer is configured.
type PrinterNotFoundError struct {
	Name string
	Err  error
}

func (e *PrinterNotFoundError) Error() string {
	var msg string
	if e.Name == "" {
		msg = "no printer specified and no default printer configured"
	} else {
		msg = fmt.Sprintf("printer not found: %s", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PrinterNotFoundError) Unwrap() error {
	return e.Err
}

// Stage names the device call that failed while submitting a job.
type Stage string

const (
	StageConfigure Stage = "configure"
	StageStartDoc  Stage = "start document"
	StageStartPage Stage = "start page"
	StageDraw      Stage = "draw image"
	StageEndPage   Stage = "end page"
	StageEndDoc    Stage = "end document"
)

// PrintSubmissionError reports a device failure while submitting copy Copy
// (1-based). Copy is 0 when the failure happened while configuring the
// device, before the first copy.
type PrintSubmissionError struct {
	Copy  int
	Stage Stage
	Err   error
}

func (e *PrintSubmissionError) Error() string {
	if e.Copy == 0 {
		return fmt.Sprintf("print submission failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("print submission failed on copy %d at %s: %v", e.Copy, e.Stage, e.Err)
}

func (e *PrintSubmissionError) Unwrap() error {
	return e.Err
}
