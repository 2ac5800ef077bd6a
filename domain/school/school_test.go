package school

import "testing"

func TestSchool_HasTopic(t *testing.T) {
	t.Parallel()

	s := School{Name: "Holberton school", Topics: []string{"Algo", "C", "Python"}}

	if !s.HasTopic("Python") {
		t.Error("HasTopic(Python) = false, want true")
	}
	if s.HasTopic("python") {
		t.Error("HasTopic is case-sensitive, want false for python")
	}
	if (School{}).HasTopic("C") {
		t.Error("HasTopic on a school without topics should be false")
	}
}
