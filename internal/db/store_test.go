package db

import (
	"strings"
	"testing"
)

func TestBuildGrantWhere_Empty(t *testing.T) {
	where, args := buildGrantWhere(GrantListParams{})
	if where != "WHERE 1=1" {
		t.Fatalf("expected neutral clause, got %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildGrantWhere_SearchCoversTitleDescriptionAgency(t *testing.T) {
	where, args := buildGrantWhere(GrantListParams{Query: "dementia"})

	for _, token := range []string{"g.title ILIKE", "g.description ILIKE", "a.name ILIKE"} {
		if !strings.Contains(where, token) {
			t.Fatalf("search clause missing %q: %s", token, where)
		}
	}
	if len(args) != 1 || args[0] != "dementia" {
		t.Fatalf("expected single search arg, got %v", args)
	}
}

func TestBuildGrantWhere_ArgIndexesStayAligned(t *testing.T) {
	where, args := buildGrantWhere(GrantListParams{
		Query:   "seniors",
		Acronym: "AIC",
		Status:  "open",
	})

	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	if !strings.Contains(where, "a.acronym = $2") {
		t.Fatalf("acronym placeholder misnumbered: %s", where)
	}
	if !strings.Contains(where, "g.status = $3") {
		t.Fatalf("status placeholder misnumbered: %s", where)
	}
}

func TestBuildGrantWhere_StatusAllIsNotFiltered(t *testing.T) {
	where, args := buildGrantWhere(GrantListParams{Status: "all"})
	if strings.Contains(where, "g.status") {
		t.Fatalf("status=all must not add a filter: %s", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}
