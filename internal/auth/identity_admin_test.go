package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeleteIdentitySendsAuthorizedDelete(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewIdentityAdminClient(IdentityAdminClientConfig{
		BaseURL: server.URL,
		APIKey:  "admin-key",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if err := client.DeleteIdentity(context.Background(), "subject-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/accounts/subject-1" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer admin-key" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
}

func TestDeleteIdentityMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewIdentityAdminClient(IdentityAdminClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if err := client.DeleteIdentity(context.Background(), "subject-1"); !errors.Is(err, ErrIdentityGone) {
		t.Fatalf("expected ErrIdentityGone, got %v", err)
	}
}

func TestDeleteIdentityRejectsUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewIdentityAdminClient(IdentityAdminClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if err := client.DeleteIdentity(context.Background(), "subject-1"); err == nil {
		t.Fatalf("expected error for server failure")
	}
}

func TestDeleteIdentityRequiresSubject(t *testing.T) {
	client, err := NewIdentityAdminClient(IdentityAdminClientConfig{BaseURL: "https://identity.example"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if err := client.DeleteIdentity(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank subject")
	}
}

func TestNewIdentityAdminClientRequiresBaseURL(t *testing.T) {
	if _, err := NewIdentityAdminClient(IdentityAdminClientConfig{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}
