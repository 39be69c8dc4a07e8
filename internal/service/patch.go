package service

// Field is a three-way patch value: unset (leave the field unchanged),
// clear (explicitly empty it), or set to a value. A plain optional cannot
// distinguish "not provided" from "explicitly cleared".
type Field[T any] struct {
	set   bool
	clear bool
	value T
}

func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

func Clear[T any]() Field[T] {
	return Field[T]{clear: true}
}

func (f Field[T]) IsSet() bool {
	return f.set
}

func (f Field[T]) IsClear() bool {
	return f.clear
}

func (f Field[T]) IsUnset() bool {
	return !f.set && !f.clear
}

func (f Field[T]) Value() T {
	return f.value
}

// ImageUpload carries the bytes of a freshly uploaded original image.
type ImageUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// CreateLinkInput is the payload for CreateLink. Validation of field shapes
// happens upstream in the HTTP layer.
type CreateLinkInput struct {
	Title       string
	Description string
	URL         string
	Category    string
	Status      string
	Tags        []string
	Audiences   []string
	Branches    []string
}

// LinkPatch is a partial update. Unset fields are left untouched.
type LinkPatch struct {
	Title       Field[string]
	Description Field[string]
	URL         Field[string]
	Category    Field[string]
	Status      Field[string]
	Tags        Field[[]string]
	Audiences   Field[[]string]
	Branches    Field[[]string]
	Image       *ImageUpload
}
