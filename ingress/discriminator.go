package ingress

import "strings"

// Discriminator decides from a View whether a source recognizes a message.
// Discriminators run before Parse, so they should only look at a few fields.
type Discriminator func(v View) bool

// Match reports whether d accepts v. A nil Discriminator accepts everything.
func (d Discriminator) Match(v View) bool {
	if d == nil {
		return true
	}
	return d(v)
}

// HasFields matches when every path exists.
func HasFields(paths ...string) Discriminator {
	return func(v View) bool {
		for _, p := range paths {
			if !v.HasField(p) {
				return false
			}
		}
		return true
	}
}

// FieldEquals matches when path holds exactly the string value.
func FieldEquals(path, value string) Discriminator {
	return func(v View) bool {
		s, ok := v.String(path)
		return ok && s == value
	}
}

// FieldPrefix matches when path holds a string starting with prefix, e.g.
// an ARN or a versioned event name.
func FieldPrefix(path, prefix string) Discriminator {
	return func(v View) bool {
		s, ok := v.String(path)
		return ok && strings.HasPrefix(s, prefix)
	}
}

// And matches when all discriminators match.
func And(ds ...Discriminator) Discriminator {
	return func(v View) bool {
		for _, d := range ds {
			if !d.Match(v) {
				return false
			}
		}
		return true
	}
}

// Or matches when any discriminator matches.
func Or(ds ...Discriminator) Discriminator {
	return func(v View) bool {
		for _, d := range ds {
			if d.Match(v) {
				return true
			}
		}
		return false
	}
}

// Not inverts d.
func Not(d Discriminator) Discriminator {
	return func(v View) bool {
		return !d.Match(v)
	}
}
