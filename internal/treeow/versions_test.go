package treeow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newVersionsClient(t *testing.T, appHandler, iosHandler http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()
	if appHandler != nil {
		mux.HandleFunc("/lookup", appHandler)
	}
	if iosHandler != nil {
		mux.HandleFunc("/releases", iosHandler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:       srv.URL,
		Timeout:       5 * time.Second,
		AppVersionURL: srv.URL + "/lookup",
		IOSVersionURL: srv.URL + "/releases",
	})
}

func TestInitVersions_ResolvesBoth(t *testing.T) {
	c := newVersionsClient(t,
		jsonResponse(`{"results":[
			{"trackName":"Some Other App","version":"9.9.9"},
			{"trackName":"Treeow Home","version":"2.3.4"}
		]}`),
		jsonResponse(`[{"releases":[
			{"type":"macOS","name":"macOS 15.5 (24F74)"},
			{"type":"iOS","name":"iOS 18.5 (22F76)"}
		]}]`),
	)

	c.InitVersions(context.Background())

	if c.appVersion != "2.3.4" {
		t.Errorf("appVersion = %q, want 2.3.4", c.appVersion)
	}
	if c.iosVersion != "18.5" {
		t.Errorf("iosVersion = %q, want 18.5", c.iosVersion)
	}
}

func TestInitVersions_FailuresKeepFallbacks(t *testing.T) {
	fail := func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}
	c := newVersionsClient(t, fail, fail)

	c.InitVersions(context.Background())

	if c.appVersion != defaultAppVersion {
		t.Errorf("appVersion = %q, want fallback %q", c.appVersion, defaultAppVersion)
	}
	if c.iosVersion != defaultIOSVersion {
		t.Errorf("iosVersion = %q, want fallback %q", c.iosVersion, defaultIOSVersion)
	}
}

func TestInitVersions_RejectsNonNumericVersions(t *testing.T) {
	c := newVersionsClient(t,
		jsonResponse(`{"results":[{"trackName":"Treeow Home","version":"2.3.4-beta"}]}`),
		jsonResponse(`[{"releases":[{"type":"iOS","name":"iOS beta (22F76)"}]}]`),
	)

	c.InitVersions(context.Background())

	if c.appVersion != defaultAppVersion {
		t.Errorf("appVersion = %q, want fallback", c.appVersion)
	}
	if c.iosVersion != defaultIOSVersion {
		t.Errorf("iosVersion = %q, want fallback", c.iosVersion)
	}
}

func TestValidVersion(t *testing.T) {
	valid := []string{"1.1.8", "18.5", "2"}
	for _, v := range valid {
		if !validVersion(v) {
			t.Errorf("validVersion(%q) = false, want true", v)
		}
	}
	invalid := []string{"", "18.5b", "v1.2", "1.2 "}
	for _, v := range invalid {
		if validVersion(v) {
			t.Errorf("validVersion(%q) = true, want false", v)
		}
	}
}

func jsonResponse(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}
