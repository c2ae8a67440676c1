package mongokv

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity: cannot connect, probe topology or reach the store.
	ErrConnectivity = errors.New("mongokv: connectivity")
	// ErrWrite: the store rejected a write.
	ErrWrite = errors.New("mongokv: write failed")
	// ErrEncode: the value could not be encoded; nothing was written.
	ErrEncode = errors.New("mongokv: encode failed")
	// ErrDecode: stored bytes do not decode (or decompress) as requested.
	ErrDecode = errors.New("mongokv: decode failed")
	// ErrStore: any other store-side read failure.
	ErrStore = errors.New("mongokv: store error")

	ErrInvalidKey        = errors.New("mongokv: key must not be empty")
	ErrInvalidPattern    = errors.New("mongokv: invalid key pattern")
	ErrOverlappingGroups = errors.New("mongokv: key requested under more than one type")
	ErrClosed            = errors.New("mongokv: client closed")
)

// OpError describes a failed operation. Kind is one of the sentinels above,
// so both errors.Is(err, ErrWrite) and errors.Is(err, <driver error>) work.
type OpError struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("%s %q: %v: %v", e.Op, e.Key, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Key != "":
		return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Kind)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func opErr(op, key string, kind, err error) error {
	return &OpError{Op: op, Key: key, Kind: kind, Err: err}
}
