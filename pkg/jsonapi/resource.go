package jsonapi

// ResourceBuilder builds a Resource.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a builder for a resource of the given type and id.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attr sets one attribute. The reserved members id and type are ignored.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	if key == "id" || key == "type" {
		return b
	}
	b.resource.Attributes[key] = value
	return b
}

// Attrs sets every entry of attrs as an attribute.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		b.Attr(k, v)
	}
	return b
}

// Meta adds one metadata entry.
func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.resource.Meta == nil {
		b.resource.Meta = make(Meta)
	}
	b.resource.Meta[key] = value
	return b
}

// Build returns the resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}
