package clustering

import (
	"reflect"
	"testing"
)

func TestClusterSingleTopic(t *testing.T) {
	groups := NewLexicalStrategy().Cluster([]string{"Organic Chemistry / Alkenes"})
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].Label != "Organic Chemistry / Alkenes" {
		t.Errorf("lone cluster label = %q, want the topic text", groups[0].Label)
	}
}

func TestClusterGroupsSimilarTopics(t *testing.T) {
	groups := NewLexicalStrategy().Cluster([]string{
		"Biology / Cell Structure",
		"Biology / Cell Membrane",
		"History / French Revolution",
	})
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %+v", len(groups), groups)
	}
	if len(groups[0].Topics) != 2 {
		t.Errorf("cell group topics = %v", groups[0].Topics)
	}
	if len(groups[1].Topics) != 1 || groups[1].Label != "History / French Revolution" {
		t.Errorf("history group = %+v", groups[1])
	}
}

func TestClusterSubstringMatch(t *testing.T) {
	groups := NewLexicalStrategy().Cluster([]string{"Photosynthesis", "photosynthesis in plants and algae"})
	if len(groups) != 1 {
		t.Fatalf("substring topics split into %d groups, want 1", len(groups))
	}
}

func TestClusterDeterministic(t *testing.T) {
	topics := []string{
		"Calculus / Derivatives",
		"Calculus / Integrals",
		"Linear Algebra / Matrices",
		"Linear Algebra / Vectors",
	}
	first := NewLexicalStrategy().Cluster(topics)
	second := NewLexicalStrategy().Cluster(topics)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical input order produced different groups:\n%+v\n%+v", first, second)
	}
}

func TestLabelTieBreaksAlphabetically(t *testing.T) {
	// Every non-stop token appears exactly twice, so the label is the
	// two alphabetically first tokens title-cased.
	groups := NewLexicalStrategy().Cluster([]string{"cell biology", "biology cell"})
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].Label != "Biology Cell" {
		t.Errorf("label = %q, want %q", groups[0].Label, "Biology Cell")
	}
}

func TestClusterDropsDuplicatesAndEmpties(t *testing.T) {
	groups := NewLexicalStrategy().Cluster([]string{"Genetics", "", "Genetics"})
	if len(groups) != 1 || len(groups[0].Topics) != 1 {
		t.Errorf("groups = %+v, want a single one-topic group", groups)
	}
}
