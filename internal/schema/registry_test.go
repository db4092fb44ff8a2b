package schema

import (
	"strings"
	"testing"
)

func TestLookupField_Valid(t *testing.T) {
	tests := []struct {
		name          string
		expectedScope TagScope
	}{
		{"PatientID", ScopePatient},
		{"StudyInstanceUID", ScopeStudy},
		{"SeriesDescription", ScopeSeries},
		{"ImageOrientationPatient", ScopeSeries},
		{"ImagePositionPatient", ScopeImage},
		{"WindowCenter", ScopeImage},
		{"TransferSyntaxUID", ScopeFileMeta},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info, err := LookupField(tc.name)
			if err != nil {
				t.Fatalf("LookupField(%q) returned error: %v", tc.name, err)
			}
			if info.Scope != tc.expectedScope {
				t.Errorf("LookupField(%q).Scope = %v, want %v", tc.name, info.Scope, tc.expectedScope)
			}
			if info.Name != tc.name {
				t.Errorf("LookupField(%q).Name = %q, want %q", tc.name, info.Name, tc.name)
			}
		})
	}
}

func TestLookupField_CaseInsensitive(t *testing.T) {
	for _, input := range []string{"patientid", "PATIENTID", "  PatientId "} {
		info, err := LookupField(input)
		if err != nil {
			t.Fatalf("LookupField(%q) returned error: %v", input, err)
		}
		if info.Name != "PatientID" {
			t.Errorf("LookupField(%q).Name = %q, want PatientID", input, info.Name)
		}
	}
}

func TestLookupField_Suggestion(t *testing.T) {
	tests := []struct {
		typo       string
		suggestion string
	}{
		{"PatinetID", "PatientID"},
		{"SeriesDescripton", "SeriesDescription"},
		{"ImageOrientationPateint", "ImageOrientationPatient"},
		{"WindowCentre", "WindowCenter"},
	}

	for _, tc := range tests {
		t.Run(tc.typo, func(t *testing.T) {
			_, err := LookupField(tc.typo)
			if err == nil {
				t.Fatalf("LookupField(%q) should return error", tc.typo)
			}
			if !strings.Contains(err.Error(), tc.suggestion) {
				t.Errorf("Error for %q should suggest %q, got: %v", tc.typo, tc.suggestion, err)
			}
		})
	}
}

func TestLookupField_NoSuggestionForGarbage(t *testing.T) {
	_, err := LookupField("zzzzzzzzzzzzzzzzzzzzzzzz")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("unexpected suggestion: %v", err)
	}
}

func TestRegistryCoversBuiltIns(t *testing.T) {
	for _, v := range Versions() {
		s, _ := Get(v)
		for _, name := range append(append([]string{}, s.Fields...), s.MetaFields...) {
			if _, err := LookupField(name); err != nil {
				t.Errorf("version %s field %q not registered: %v", v, name, err)
			}
		}
	}
}

func TestTagScope_String(t *testing.T) {
	tests := []struct {
		scope    TagScope
		expected string
	}{
		{ScopePatient, "Patient"},
		{ScopeStudy, "Study"},
		{ScopeSeries, "Series"},
		{ScopeImage, "Image"},
		{ScopeFileMeta, "FileMeta"},
		{TagScope(99), "Unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if tc.scope.String() != tc.expected {
				t.Errorf("TagScope.String() = %q, want %q", tc.scope.String(), tc.expected)
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"PatientID", "PatinetID", 2},
	}

	for _, tc := range tests {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			result := levenshteinDistance(tc.a, tc.b)
			if result != tc.expected {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tc.a, tc.b, result, tc.expected)
			}
		})
	}
}
