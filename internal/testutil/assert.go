package testutil

import "strings"

// AssertFileExists fails the test if the file does not exist.
func (s *TestStore) AssertFileExists(path string) {
	s.t.Helper()
	if !s.FileExists(path) {
		s.t.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if the file exists.
func (s *TestStore) AssertFileNotExists(path string) {
	s.t.Helper()
	if s.FileExists(path) {
		s.t.Errorf("expected file to not exist: %s", path)
	}
}

// AssertFileContains fails the test if the file does not contain the substring.
func (s *TestStore) AssertFileContains(path, substr string) {
	s.t.Helper()
	content := s.ReadFile(path)
	if !strings.Contains(content, substr) {
		s.t.Errorf("expected file %s to contain %q, got:\n%s", path, substr, content)
	}
}

// AssertFileNotContains fails the test if the file contains the substring.
func (s *TestStore) AssertFileNotContains(path, substr string) {
	s.t.Helper()
	content := s.ReadFile(path)
	if strings.Contains(content, substr) {
		s.t.Errorf("expected file %s to not contain %q, got:\n%s", path, substr, content)
	}
}

// Snapshot returns every file under the store root with its content. Tests
// compare snapshots to prove an operation wrote nothing.
func (s *TestStore) Snapshot() map[string]string {
	s.t.Helper()
	out := make(map[string]string)
	for _, dir := range []string{"imagesets", "places", "catfiles", "quarantine"} {
		if !s.FileExists(dir) {
			continue
		}
		for _, f := range s.Files(dir) {
			out[f] = s.ReadFile(f)
		}
	}
	return out
}
