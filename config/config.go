// Package config resolves configuration sources and process-level settings.
//
// A source is either the name of a module in the catalog, whose default
// export is taken as the data, or a file decoded by its extension: YAML,
// TOML, HCL or JSON. Environment variables referenced as ${NAME} in a file
// are expanded before decoding.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/module"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// LoadSource loads the data named by source. Catalog modules take
// precedence over files; a nil catalog only reads files.
func LoadSource(ctx context.Context, catalog *module.Catalog, source string) (any, error) {
	if source == "" {
		return nil, errs.Invalid.Errorf("empty configuration source")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if catalog != nil {
		if ref, err := module.ParseRef(source); err == nil && catalog.Has(ref.Module) {
			return catalog.Resolve(ref)
		}
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound.Errorf("configuration source %q", source)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	out, err := Parse(filepath.Ext(source), data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", source, err)
	}
	return out, nil
}

// Parse decodes data according to a file extension. Unknown extensions are
// read as JSON.
func Parse(ext string, data []byte) (any, error) {
	var out any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case ".toml":
		var table map[string]any
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, err
		}
		out = table
	case ".hcl":
		return parseHCL(data)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseHCL evaluates every top-level attribute of an HCL body without
// variables or functions.
func parseHCL(data []byte) (any, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, "source.hcl")
	if diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	out := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// ctyToGo converts a cty.Value to plain Go data. Whole numbers become int.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = gv
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// Decode copies generic configuration data into out, a pointer to a struct
// with yaml tags. A nil input leaves out untouched.
func Decode(in any, out any) error {
	if in == nil {
		return nil
	}
	raw, err := yaml.Marshal(in)
	if err != nil {
		return errs.Invalid.Errorf("encode config: %v", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return errs.Invalid.Errorf("decode config: %v", err)
	}
	return nil
}
