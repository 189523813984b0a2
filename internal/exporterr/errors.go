// Package exporterr holds the error taxonomy shared by the export pipeline.
// Every error is fatal to the current export; nothing here is retried.
package exporterr

import (
	"errors"
	"fmt"
)

var (
	ErrAssetLoad   = errors.New("asset load failed")
	ErrAudioDecode = errors.New("audio decode failed")
	ErrNetwork     = errors.New("network failure")
	ErrEncode      = errors.New("encode failed")
	ErrSession     = errors.New("render session unknown or expired")
	ErrConfig      = errors.New("invalid configuration")
)

// Error ties a failure to its kind and the operation that produced it.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel so callers can write errors.Is(err, ErrNetwork).
func (e *Error) Is(target error) bool { return e.Kind == target }

func AssetLoad(op string, err error) error   { return &Error{Kind: ErrAssetLoad, Op: op, Err: err} }
func AudioDecode(op string, err error) error { return &Error{Kind: ErrAudioDecode, Op: op, Err: err} }
func Network(op string, err error) error     { return &Error{Kind: ErrNetwork, Op: op, Err: err} }
func Encode(op string, err error) error      { return &Error{Kind: ErrEncode, Op: op, Err: err} }
func Session(op string, err error) error     { return &Error{Kind: ErrSession, Op: op, Err: err} }
func Config(op string, err error) error      { return &Error{Kind: ErrConfig, Op: op, Err: err} }

// KindOf returns the taxonomy sentinel of err, or nil when err is not classified.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
