package jsonapi

// DocumentBuilder builds a Document.
type DocumentBuilder struct {
	doc Document
}

// NewDocument creates an empty builder.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Data sets the primary data: a Resource, a []Resource or nil.
func (b *DocumentBuilder) Data(data any) *DocumentBuilder {
	b.doc.Data = data
	return b
}

// Errors sets the errors and clears the data.
func (b *DocumentBuilder) Errors(errors ...Error) *DocumentBuilder {
	b.doc.Errors = errors
	b.doc.Data = nil
	return b
}

// Meta adds one metadata entry.
func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// JSONAPI sets the version object.
func (b *DocumentBuilder) JSONAPI() *DocumentBuilder {
	b.doc.JSONAPI = &JSONAPI{Version: Version}
	return b
}

// Build returns the document.
func (b *DocumentBuilder) Build() Document {
	return b.doc
}

// NewSingleResourceDocument wraps one resource.
func NewSingleResourceDocument(r Resource) Document {
	return NewDocument().Data(r).Build()
}

// NewCollectionDocument wraps resources and records their count in meta.
func NewCollectionDocument(resources []Resource) Document {
	if resources == nil {
		resources = []Resource{}
	}
	return NewDocument().Data(resources).Meta("total", len(resources)).Build()
}

// NewErrorDocument wraps errors.
func NewErrorDocument(errors ...Error) Document {
	return NewDocument().Errors(errors...).Build()
}
