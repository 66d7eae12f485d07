package models

import (
	"context"
	"testing"
)

func TestCreateUser_RequiresOrganizationContext(t *testing.T) {
	input := &NewUser{
		Email:    "pastor@church.example",
		Name:     "Pastor Kim",
		Password: "changeme123",
	}
	_, err := CreateUser(context.Background(), input)
	if err == nil {
		t.Fatal("expected an error without organization context")
	}
	if err.Error() != "organization id is required" {
		t.Fatalf("unexpected error: %v", err)
	}
}
