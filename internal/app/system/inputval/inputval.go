// Package inputval validates decoded JSON request bodies with
// waffle/pantry/validate and turns failures into per-field messages.
//
// Inputs declare rules in `validate` tags and a display name in `label`:
//
//	type createInput struct {
//	    Title string `json:"title" validate:"required,max=200" label:"Title"`
//	    Slug  string `json:"slug" validate:"slug,max=120" label:"Slug"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() {
//	    jsonutil.ValidationError(w, res.Fields())
//	    return
//	}
//
// Besides the built-in rules (required, email, oneof, min, max) this
// package registers:
//
//	authmethod   password or google
//	role         admin or editor
//	objectid     a 24-char hex ObjectID
//	httpurl      an http(s) URL
//	optionalurl  empty or an http(s) URL
//	slug         empty or lowercase words joined by single dashes
//	hexcolor     empty or #rgb / #rrggbb
package inputval

import (
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/stratasite/internal/app/system/slug"
	"github.com/dalemusser/stratasite/internal/app/system/theme"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string // JSON name
	Label   string
	Message string
}

// Result collects the failures of one Validate call.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// Fields maps JSON field names to their first message, the shape
// jsonutil.ValidationError writes.
func (r *Result) Fields() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// rule is a custom string rule and the message shown when it fails.
type rule struct {
	check   func(string) bool
	message func(label string) string
}

func optional(check func(string) bool) func(string) bool {
	return func(s string) bool { return strings.TrimSpace(s) == "" || check(s) }
}

var rules = map[string]rule{
	"authmethod": {
		check:   func(s string) bool { return models.IsValidAuthMethod(strings.ToLower(strings.TrimSpace(s))) },
		message: func(l string) string { return l + " must be one of: " + strings.Join(models.AllAuthMethodValues(), ", ") + "." },
	},
	"role": {
		check:   models.IsValidRole,
		message: func(l string) string { return l + " must be one of: " + strings.Join(models.AllRoles(), ", ") + "." },
	},
	"objectid": {
		check:   isObjectID,
		message: func(l string) string { return l + " is not a valid ID." },
	},
	"httpurl": {
		check:   IsValidHTTPURL,
		message: urlMessage,
	},
	"optionalurl": {
		check:   optional(IsValidHTTPURL),
		message: urlMessage,
	},
	"slug": {
		check:   optional(slug.Valid),
		message: func(l string) string { return l + " may contain only lowercase letters, numbers and single dashes." },
	},
	"hexcolor": {
		check:   optional(theme.IsHexColor),
		message: func(l string) string { return l + " must be a hex color like #1e40af." },
	},
}

func urlMessage(l string) string {
	return l + " must be a valid URL starting with http:// or https://."
}

var validator = sync.OnceValue(func() *validate.Validator {
	v := validate.New(validate.WithStopOnFirstError())
	for name, r := range rules {
		check := r.check
		v.RegisterRuleFunc(name, func(value any) bool {
			s, ok := value.(string)
			return ok && check(s)
		}, name)
	}
	return v
})

// Validate checks s (a struct or pointer to one) against its tags.
func Validate(s any) *Result {
	res := &Result{}
	err := validator().Struct(s)
	if err == nil {
		return res
	}
	errs, ok := err.(validate.Errors)
	if !ok {
		return res
	}

	labels := labelsFor(s)
	for _, e := range errs {
		label := labels[e.Field]
		if label == "" {
			label = e.Field
		}
		res.Errors = append(res.Errors, FieldError{
			Field:   e.Field,
			Label:   label,
			Message: message(label, e.Rule, e.Param),
		})
	}
	return res
}

var labelCache sync.Map // reflect.Type -> map[string]string

// labelsFor maps JSON field names to `label` tags for the struct type of s.
func labelsFor(s any) map[string]string {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	if cached, ok := labelCache.Load(t); ok {
		return cached.(map[string]string)
	}

	labels := map[string]string{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}
		if label := f.Tag.Get("label"); label != "" {
			labels[name] = label
		}
	}
	labelCache.Store(t, labels)
	return labels
}

func message(label, ruleName, param string) string {
	if r, ok := rules[ruleName]; ok {
		return r.message(label)
	}
	switch ruleName {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	default:
		return label + " is invalid."
	}
}

// IsValidEmail reports whether s is a bare RFC 5322 address ("Name <a@b>"
// is rejected).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}
