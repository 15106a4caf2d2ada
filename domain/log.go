package domain

import "log/slog"

// Identifiers and enums are logged by name rather than as raw bytes or ints.

func (g GroupID) LogValue() slog.Value     { return slog.StringValue(g.String()) }
func (m MessageID) LogValue() slog.Value   { return slog.StringValue(m.String()) }
func (a AuthorID) LogValue() slog.Value    { return slog.StringValue(a.String()) }
func (k SessionKey) LogValue() slog.Value  { return slog.StringValue(k.String()) }
func (r Role) LogValue() slog.Value        { return slog.StringValue(r.String()) }
func (s State) LogValue() slog.Value       { return slog.StringValue(s.String()) }
func (v Visibility) LogValue() slog.Value  { return slog.StringValue(v.String()) }
func (t MessageType) LogValue() slog.Value { return slog.StringValue(t.String()) }
