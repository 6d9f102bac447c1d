package filesystem

import "iter"

// NextFunc produces the next element of a Listing. It returns ok=false once
// the sequence is exhausted. A non-nil error ends the sequence.
type NextFunc func() (attrs FileAttributes, ok bool, err error)

// Listing is a lazy, single-pass sequence of FileAttributes.
//
//	l := adapter.ListContents(ctx, "photos", false)
//	for l.Next() {
//		fmt.Println(l.Attributes().Path())
//	}
//	if err := l.Err(); err != nil { ... }
//
// Items already returned by Next stay valid after a later failure.
type Listing struct {
	next NextFunc
	cur  FileAttributes
	err  error
	done bool
}

func NewListing(next NextFunc) *Listing {
	return &Listing{next: next}
}

// FailedListing returns a Listing whose first Next reports err.
func FailedListing(err error) *Listing {
	return NewListing(func() (FileAttributes, bool, error) {
		return FileAttributes{}, false, err
	})
}

// Next advances to the next item. It returns false when the listing is
// exhausted or has failed; check Err to tell the two apart.
func (l *Listing) Next() bool {
	if l.done {
		return false
	}
	attrs, ok, err := l.next()
	if err != nil {
		l.err = err
		l.done = true
		l.cur = FileAttributes{}
		return false
	}
	if !ok {
		l.done = true
		l.cur = FileAttributes{}
		return false
	}
	l.cur = attrs
	return true
}

// Attributes returns the item produced by the last successful Next.
func (l *Listing) Attributes() FileAttributes {
	return l.cur
}

func (l *Listing) Err() error {
	return l.err
}

// All adapts the listing to a range-over-func sequence. The final pair
// carries the error, if any.
func (l *Listing) All() iter.Seq2[FileAttributes, error] {
	return func(yield func(FileAttributes, error) bool) {
		for l.Next() {
			if !yield(l.Attributes(), nil) {
				return
			}
		}
		if l.err != nil {
			yield(FileAttributes{}, l.err)
		}
	}
}

// Collect drains the listing. On failure it returns the items produced
// before the error together with the error.
func (l *Listing) Collect() ([]FileAttributes, error) {
	var out []FileAttributes
	for l.Next() {
		out = append(out, l.Attributes())
	}
	return out, l.err
}
