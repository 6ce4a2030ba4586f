package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Request defaults.
const (
	DefaultMaxResults  = 5
	DefaultSearchDepth = 1
)

// Request is the immutable input of one pipeline run.
type Request struct {
	Domain      string `json:"domain" validate:"required,fqdn"`
	TargetRole  string `json:"target_role" validate:"required"`
	MaxResults  int    `json:"max_results" validate:"gte=1,lte=100"`
	SearchDepth int    `json:"search_depth" validate:"gte=1,lte=20"`
}

var requestValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims input, strips a URL scheme or leading "www." from the
// domain and fills defaults for zero-valued limits.
func (r Request) Normalize() Request {
	d := strings.ToLower(strings.TrimSpace(r.Domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	r.Domain = d
	r.TargetRole = strings.TrimSpace(r.TargetRole)
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.SearchDepth == 0 {
		r.SearchDepth = DefaultSearchDepth
	}
	return r
}

// Validate checks the request shape. It does not normalize.
func (r Request) Validate() error {
	err := requestValidator.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "request: validate")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return eris.Errorf("request: invalid input: %s", strings.Join(msgs, "; "))
}
