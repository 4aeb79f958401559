package store

import (
	"fmt"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/lni/dragonboat/v4/logger"
	"path"
)

var Logger = logger.GetLogger("store")

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IReader is the read side of a hierarchical snapshot store. Objects are
// addressed by absolute slash separated paths ("/PartType0/Coordinates").
// Attributes are attached to groups and datasets. All datasets are row
// major and have rank 1 or 2.
type IReader interface {
	// HasGroup reports whether a group exists at path.
	HasGroup(path string) bool
	// HasDataset reports whether a dataset exists at path.
	HasDataset(path string) bool
	// HasAttr reports whether the object at path carries the attribute name.
	HasAttr(path, name string) bool
	// Attr returns the attribute name of the object at path.
	Attr(path, name string) (Attr, error)
	// AttrNames returns the sorted attribute names of the object at path.
	AttrNames(path string) ([]string, error)
	// Members returns the sorted names of the direct children of the group at path.
	Members(path string) ([]string, error)
	// Extent returns the dimensions and element kind of the dataset at path.
	Extent(path string) (dims []uint64, kind dtype.Kind, err error)
	// ReadFull returns the complete little-endian buffer of the dataset at path.
	ReadFull(path string) ([]byte, error)
	// ReadRows returns n rows starting at row off (all trailing dimensions in full).
	ReadRows(path string, off, n uint64) ([]byte, error)
	// Close releases the store.
	Close() error
}

// IWriter is the write side of a hierarchical snapshot store. Parents must
// exist before children are created.
type IWriter interface {
	// CreateGroup creates an empty group at path.
	CreateGroup(path string) error
	// CreateDataset creates a zero filled dataset with the given dimensions.
	CreateDataset(path string, dims []uint64, kind dtype.Kind) error
	// SetAttr attaches a to the object at path, replacing an attribute of the same name.
	SetAttr(path string, a Attr) error
	// WriteFull writes the complete buffer of the dataset at path.
	WriteFull(path string, data []byte) error
	// WriteRows writes n rows starting at row off.
	WriteRows(path string, off, n uint64, data []byte) error
	// Close flushes and releases the store. The destination is only complete after Close.
	Close() error
}

// IRegionWriter is a writer whose datasets each occupy one fixed byte range
// of the destination file, so that other processes can fill rows in place.
type IRegionWriter interface {
	IWriter
	// Region returns the file offset of the first value of the dataset at
	// path together with its dimensions and element kind.
	Region(path string) (offset uint64, dims []uint64, kind dtype.Kind, err error)
}

// ISlabWriter writes rows into the value range of a dataset created by an
// IRegionWriter of another process.
type ISlabWriter interface {
	// WriteSlab writes data at the absolute file offset.
	WriteSlab(offset uint64, data []byte) error
	// Close releases the file.
	Close() error
}

// --------------------------------------------------------------------------
// Paths
// --------------------------------------------------------------------------

// Clean normalizes p to an absolute path without trailing slash
func Clean(p string) string {
	return path.Clean("/" + p)
}

// Join joins path elements into a clean absolute path
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}

// Parent returns the path of the group containing p ("/" for top level objects)
func Parent(p string) string {
	return path.Dir(Clean(p))
}

// Base returns the last element of p
func Base(p string) string {
	return path.Base(Clean(p))
}

// IsChild reports whether child is a direct child of parent
func IsChild(parent, child string) bool {
	parent, child = Clean(parent), Clean(child)
	return child != "/" && Parent(child) == parent
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Is makes errors.Is match any *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new StoreError with a formatted message.
func Errorf(code RetCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Sentinels for errors.Is, matching every error with the same code
var (
	ErrNotFound  = &Error{Code: RetCNotFound}
	ErrWrongType = &Error{Code: RetCWrongType}
	ErrInvalid   = &Error{Code: RetCInvalidOperation}
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the store.
	RetCInvalidOperation                    // 3: Invalid operation (object exists, shape mismatch, out of range).
	RetCNotFound                            // 4: Group, dataset or attribute does not exist.
	RetCWrongType                           // 5: Object or value has an unexpected type.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotFound:
		return "NotFound"
	case RetCWrongType:
		return "WrongType"
	default:
		return "Unknown"
	}
}
