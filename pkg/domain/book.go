// Package domain defines the book record, the collection persisted as a
// single snapshot, and the request shapes accepted by the write operations.
package domain

// Book is a single entry in the shelf.
type Book struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
}

// Collection is the ordered list of books read and written as one unit.
// Order is insertion order; deletion removes an element in place.
type Collection []Book

// NextID returns one more than the highest id in the collection, or 1 when it is empty.
func (c Collection) NextID() int {
	maxID := 0
	for _, b := range c {
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	return maxID + 1
}

// IndexOf returns the position of the book with id, or -1.
func (c Collection) IndexOf(id int) int {
	for i, b := range c {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Available returns the books flagged available, preserving stored order.
// The result is never nil so it encodes as an empty JSON array.
func (c Collection) Available() Collection {
	out := make(Collection, 0, len(c))
	for _, b := range c {
		if b.Available {
			out = append(out, b)
		}
	}
	return out
}

// Remove returns the collection without the element at index i.
func (c Collection) Remove(i int) Collection {
	out := make(Collection, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}

// Clone returns a copy that shares no backing array with c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}
