package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// CreateBookRequest is the only body shape accepted when creating a book.
// Pointer fields distinguish "absent" from zero values.
type CreateBookRequest struct {
	Title     *string `json:"title"`
	Author    *string `json:"author"`
	Available *bool   `json:"available"`
}

// UpdateBookRequest carries a partial update; nil fields are left unchanged.
type UpdateBookRequest struct {
	Title     *string `json:"title"`
	Author    *string `json:"author"`
	Available *bool   `json:"available"`
}

// DecodeCreateBookRequest parses and validates a create body.
func DecodeCreateBookRequest(data []byte) (CreateBookRequest, error) {
	var req CreateBookRequest
	if err := decodeObject(data, &req); err != nil {
		return CreateBookRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return CreateBookRequest{}, err
	}
	return req, nil
}

// DecodeUpdateBookRequest parses and validates a partial update body.
// An empty body is treated as an update that changes nothing.
func DecodeUpdateBookRequest(data []byte) (UpdateBookRequest, error) {
	var req UpdateBookRequest
	if len(strings.TrimSpace(string(data))) == 0 {
		return req, nil
	}
	if err := decodeObject(data, &req); err != nil {
		return UpdateBookRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return UpdateBookRequest{}, err
	}
	return req, nil
}

// Validate checks that every field is present and well formed.
func (r CreateBookRequest) Validate() error {
	if r.Title == nil || *r.Title == "" {
		return invalid("title", "must be a non-empty string")
	}
	if r.Author == nil || *r.Author == "" {
		return invalid("author", "must be a non-empty string")
	}
	if r.Available == nil {
		return invalid("available", "must be a boolean")
	}
	return nil
}

// Book builds the record to insert; the id is assigned by the caller.
func (r CreateBookRequest) Book(id int) Book {
	return Book{ID: id, Title: *r.Title, Author: *r.Author, Available: *r.Available}
}

// Validate rejects present fields that would break the record invariants.
func (r UpdateBookRequest) Validate() error {
	if r.Title != nil && *r.Title == "" {
		return invalid("title", "must be a non-empty string")
	}
	if r.Author != nil && *r.Author == "" {
		return invalid("author", "must be a non-empty string")
	}
	return nil
}

// Apply returns b with the present fields replaced.
func (r UpdateBookRequest) Apply(b Book) Book {
	if r.Title != nil {
		b.Title = *r.Title
	}
	if r.Author != nil {
		b.Author = *r.Author
	}
	if r.Available != nil {
		b.Available = *r.Available
	}
	return b
}

func decodeObject(data []byte, v any) error {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return invalid("", "body must be a JSON object")
	}
	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return invalid(typeErr.Field, "has the wrong type")
		}
		return invalid("", "malformed JSON")
	}
	return nil
}
