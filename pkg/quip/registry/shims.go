package registry

import "strings"

// stringShim exposes strings package helpers as reflected String selectors.
type stringShim string

func (s stringShim) StartsWith(prefix string) bool   { return strings.HasPrefix(string(s), prefix) }
func (s stringShim) EndsWith(suffix string) bool     { return strings.HasSuffix(string(s), suffix) }
func (s stringShim) Contains(sub string) bool        { return strings.Contains(string(s), sub) }
func (s stringShim) Index(sub string) int            { return strings.Index(string(s), sub) }
func (s stringShim) Count(sub string) int            { return strings.Count(string(s), sub) }
func (s stringShim) Fields() []string                { return strings.Fields(string(s)) }
func (s stringShim) TrimPrefix(prefix string) string { return strings.TrimPrefix(string(s), prefix) }
func (s stringShim) TrimSuffix(suffix string) string { return strings.TrimSuffix(string(s), suffix) }
func (s stringShim) EqualFold(other string) bool     { return strings.EqualFold(string(s), other) }
