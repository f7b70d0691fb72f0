package authz

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestMap_Union(t *testing.T) {
	c := decode(t, `{
		"realm_access": {"roles": ["A"]},
		"resource_access": {"c1": {"roles": ["B"]}, "other": {"roles": ["X"]}},
		"groups": ["G"],
		"scope": "x y"
	}`)
	got := Mapper{ClientID: "c1"}.Map(c).Sorted()
	want := []string{"GROUP_G", "ROLE_A", "ROLE_B", "SCOPE_x", "SCOPE_y"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("authorities mismatch (-want +got):\n%s", diff)
	}
}

func TestMap_OrderAndDuplicatesDoNotMatter(t *testing.T) {
	a := decode(t, `{"realm_access":{"roles":["A","B","A"]},"roles":["B"],"groups":["G","G"],"scope":"x  y x"}`)
	b := decode(t, `{"scope":"y x","groups":["G"],"roles":["A"],"realm_access":{"roles":["B"]}}`)
	m := Mapper{}
	assert.Equal(t, m.Map(a).Sorted(), m.Map(b).Sorted())
	assert.Len(t, m.Map(a), 5)
}

func TestMap_MissingAndMalformedClaims(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":               `{}`,
		"null roles":          `{"realm_access":{"roles":null},"roles":null,"groups":null}`,
		"wrong types":         `{"realm_access":"admin","resource_access":[1],"groups":"G","scope":7,"roles":{"a":1}}`,
		"non-string entries":  `{"roles":[1,true,null,""]}`,
		"resource without id": `{"resource_access":{"c1":{"roles":["B"]}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Mapper{}.Map(decode(t, raw)))
		})
	}
}

func TestMap_RealmRoleCase(t *testing.T) {
	c := decode(t, `{"realm_access":{"roles":["admin"]},"roles":["user"]}`)

	asIs := Mapper{RealmRoleCase: AsIs}.Map(c)
	assert.True(t, asIs.Has("ROLE_admin"))
	assert.False(t, asIs.Has("ROLE_ADMIN"))

	upper := Mapper{RealmRoleCase: Upper}.Map(c)
	assert.True(t, upper.Has("ROLE_ADMIN"))
	assert.False(t, upper.Has("ROLE_admin"))
	assert.True(t, upper.Has("ROLE_user"), "only realm roles are upper-cased")
}

func TestMap_ClientSelection(t *testing.T) {
	ra := `"resource_access":{"web":{"roles":["W"]},"api":{"roles":["P"]}}`

	byAzp := Mapper{}.Map(decode(t, `{"azp":"web","aud":"api",`+ra+`}`))
	assert.True(t, byAzp.HasRole("W"))
	assert.False(t, byAzp.HasRole("P"))

	byAud := Mapper{}.Map(decode(t, `{"aud":["api"],`+ra+`}`))
	assert.True(t, byAud.HasRole("P"))

	ambiguous := Mapper{}.Map(decode(t, `{"aud":["api","web"],`+ra+`}`))
	assert.Empty(t, ambiguous)

	explicit := Mapper{ClientID: "api"}.Map(decode(t, `{"azp":"web",`+ra+`}`))
	assert.True(t, explicit.HasRole("ROLE_P"))
}

func TestMap_InProcessSlices(t *testing.T) {
	c := map[string]any{
		"realm_access":    map[string]any{"roles": []string{"ADMIN"}},
		"resource_access": map[string]any{"c": map[string]any{"roles": []string{"UPLOAD_ONLY"}}},
		"groups":          []string{"OPS"},
	}
	a := Mapper{ClientID: "c"}.Map(c)
	assert.True(t, a.HasAnyRole("USER", "UPLOAD_ONLY"))
	assert.True(t, a.Has("GROUP_OPS"))
	assert.False(t, a.HasAnyRole())
}

func TestParseRoleCase(t *testing.T) {
	for in, want := range map[string]RoleCase{"": AsIs, "as_is": AsIs, "UPPER": Upper} {
		got, err := ParseRoleCase(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRoleCase("lower")
	assert.Error(t, err)
}
