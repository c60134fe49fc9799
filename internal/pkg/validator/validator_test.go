package validator

import "testing"

type sampleRequest struct {
	Name     string `json:"name" validate:"required,max=10"`
	DrawMode string `json:"draw_mode" validate:"draw_mode"`
	Code     string `json:"code" validate:"omitempty,giftcode"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(sampleRequest{DrawMode: "turbo", Code: "ABC"})
	if errs["name"] != "This field is required" {
		t.Fatalf("expected required error on name, got %#v", errs)
	}
	if errs["draw_mode"] == "" {
		t.Fatalf("expected draw_mode error, got %#v", errs)
	}
	if errs["code"] == "" {
		t.Fatalf("expected code error, got %#v", errs)
	}
}

func TestValidatePasses(t *testing.T) {
	if errs := Validate(sampleRequest{Name: "ok", DrawMode: "automatic", Code: "ABCD-EFGH-JKLM"}); errs != nil {
		t.Fatalf("expected no errors, got %#v", errs)
	}
}
