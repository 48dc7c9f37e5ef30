// Package language wraps gqlparser for parsing and validating GraphQL
// documents and schema definitions.
package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses a query document without validating it.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses SDL and validates it into an executable schema AST.
// The built-in scalars and directives are added by gqlparser.
func LoadSchema(name, sdl string) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadQuery parses source and validates it against s. Syntax and validation
// errors are both returned as a list with source locations.
func LoadQuery(s *Schema, source string) (*QueryDocument, ErrorList) {
	return gqlparser.LoadQuery(s, source)
}

// AsErrorList flattens err into gqlparser errors, keeping locations when err
// already carries them.
func AsErrorList(err error) ErrorList {
	if err == nil {
		return nil
	}
	var list gqlerror.List
	if errors.As(err, &list) {
		return list
	}
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		return ErrorList{ge}
	}
	return ErrorList{gqlerror.Wrap(err)}
}
