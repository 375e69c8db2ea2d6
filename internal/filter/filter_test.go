package filter

import (
	"testing"

	"github.com/electwix/metacat/internal/metadata"
)

var fixtures = []metadata.Object{
	{Name: "users", Kind: metadata.KindTable},
	{Name: "posts", Kind: metadata.KindTable},
	{Name: "active_users", Kind: metadata.KindView},
	{Name: "pg_stat_summary", Kind: metadata.KindView},
	{Name: "daily_rollup", Kind: metadata.KindMaterializedView},
}

func matchNames(t *testing.T, expr string) []string {
	t.Helper()

	f, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", expr, err)
	}

	var names []string
	for _, obj := range fixtures {
		if f.Match(obj) {
			names = append(names, obj.Name)
		}
	}
	return names
}

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{`name = users`, []string{"users"}},
		{`name = "users"`, []string{"users"}},
		{`name != users`, []string{"posts", "active_users", "pg_stat_summary", "daily_rollup"}},
		{`kind = table`, []string{"users", "posts"}},
		{`kind = view`, []string{"active_users", "pg_stat_summary"}},
		{`kind = "materialized view"`, []string{"daily_rollup"}},
		{`name ~ "pg_%"`, []string{"pg_stat_summary"}},
		{`name ~ "%users"`, []string{"users", "active_users"}},
		{`name ~ "user_"`, []string{"users"}},
		{`name ~ "users_"`, nil},
		{`name ~ "post_"`, []string{"posts"}},
		{`kind = view and name ~ "%users"`, []string{"active_users"}},
		{`name = users or name = posts`, []string{"users", "posts"}},
		{`(name = users or name = posts) and kind = table`, []string{"users", "posts"}},
		{`(name = users or name = active_users) and kind = view`, []string{"active_users"}},
		{`kind = table and kind = view`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := matchNames(t, tt.expr)
			if len(got) != len(tt.want) {
				t.Fatalf("matched %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("matched %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		``,
		`name =`,
		`= users`,
		`owner = bob`,
		`name = users and`,
		`(name = users`,
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			if _, err := Parse(expr); err == nil {
				t.Errorf("Parse(%q) = nil error, want failure", expr)
			}
		})
	}
}

func TestLikeToRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"users", "users", true},
		{"users", "users2", false},
		{"user%", "users", true},
		{"user_", "users", true},
		{"user_", "user", false},
		{"%_%", "ab", true},
		{"a.b", "a.b", true},
		{"a.b", "axb", false},
	}

	for _, tt := range tests {
		re, err := likeToRegexp(tt.pattern)
		if err != nil {
			t.Fatalf("likeToRegexp(%q) error = %v", tt.pattern, err)
		}
		if got := re.MatchString(tt.input); got != tt.want {
			t.Errorf("pattern %q on %q = %v, want %v", tt.pattern, tt.input, got, tt.want)
		}
	}
}
