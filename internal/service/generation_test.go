package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"inkgen/internal/inference"
	"inkgen/model"
)

type fakeRunner struct {
	artifacts []inference.Artifact
	err       error

	gotModel string
	gotInput inference.Input
}

func (f *fakeRunner) Run(ctx context.Context, modelVersion string, input inference.Input) ([]inference.Artifact, error) {
	f.gotModel = modelVersion
	f.gotInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.artifacts, nil
}

func artifactOf(data string) inference.Artifact {
	return inference.Artifact{
		URL:  "https://replicate.delivery/out/" + data,
		Body: io.NopCloser(bytes.NewReader([]byte(data))),
	}
}

func newTestGenerationService(store *fakeGenerationStore, blob *fakeBlobStore, runner *fakeRunner) *GenerationService {
	return NewGenerationService(
		store,
		blob,
		"pages",
		runner,
		"fofr/sdxl-fresh-ink:8515c",
		nil,
		zerolog.Nop(),
	)
}

func TestGenerateStoresArtifactsInOrder(t *testing.T) {
	store := newFakeGenerationStore()
	blob := newFakeBlobStore()
	runner := &fakeRunner{artifacts: []inference.Artifact{artifactOf("first"), artifactOf("second")}}
	svc := newTestGenerationService(store, blob, runner)

	gen, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "a koi fish"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.Status != model.StatusCompleted {
		t.Fatalf("status = %s, want completed", gen.Status)
	}
	if len(gen.OutputURLs) != 2 {
		t.Fatalf("expected 2 output urls, got %d", len(gen.OutputURLs))
	}
	for i, u := range gen.OutputURLs {
		if !strings.Contains(u, fmt.Sprintf("_%d.png", i)) {
			t.Fatalf("url %d out of order: %s", i, u)
		}
		key, ok := objectKeyFromURL(u, "pages")
		if !ok {
			t.Fatalf("no object key in %s", u)
		}
		if !blob.has(key) {
			t.Fatalf("artifact %s not uploaded", key)
		}
		if ct := blob.contentType(key); ct != "image/png" {
			t.Fatalf("content type = %q, want image/png", ct)
		}
		if !strings.HasPrefix(key, "generations/user-1/") {
			t.Fatalf("object key outside user prefix: %s", key)
		}
	}
	if got := store.gen(gen.ID); got.Status != model.StatusCompleted || len(got.OutputURLs) != 2 {
		t.Fatalf("durable row not completed: %+v", got)
	}
}

func TestGenerateAppliesServerTuning(t *testing.T) {
	store := newFakeGenerationStore()
	blob := newFakeBlobStore()
	runner := &fakeRunner{artifacts: []inference.Artifact{artifactOf("one")}}
	svc := newTestGenerationService(store, blob, runner)

	gen, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "rose"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if runner.gotModel != "fofr/sdxl-fresh-ink:8515c" {
		t.Fatalf("model ref = %q", runner.gotModel)
	}
	if runner.gotInput["negative_prompt"] != defaultNegativePrompt {
		t.Fatalf("model input negative_prompt = %v, want default", runner.gotInput["negative_prompt"])
	}
	if runner.gotInput["width"] != defaultDimension || runner.gotInput["height"] != defaultDimension {
		t.Fatalf("dimensions not defaulted: %v x %v", runner.gotInput["width"], runner.gotInput["height"])
	}
	if runner.gotInput["scheduler"] != tuningScheduler || runner.gotInput["num_inference_steps"] != tuningNumInferenceSteps {
		t.Fatal("server-side tuning not applied to model input")
	}
	// The defaulted negative prompt goes to the model only; the row keeps
	// what the client actually sent.
	if got := store.gen(gen.ID); got.NegativePrompt != "" {
		t.Fatalf("stored negative prompt = %q, want empty", got.NegativePrompt)
	}
}

func TestGenerateInferenceErrorMarksFailed(t *testing.T) {
	store := newFakeGenerationStore()
	blob := newFakeBlobStore()
	runner := &fakeRunner{err: errors.New("prediction failed: NSFW content detected")}
	svc := newTestGenerationService(store, blob, runner)

	_, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "rose"})
	if err == nil {
		t.Fatal("expected inference error to surface")
	}

	gens, _ := store.List(context.Background(), "user-1")
	if len(gens) != 1 {
		t.Fatalf("expected 1 row, got %d", len(gens))
	}
	got := gens[0]
	if got.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMsg, "NSFW") {
		t.Fatalf("error_msg = %q", got.ErrorMsg)
	}
	if len(got.OutputURLs) != 0 {
		t.Fatalf("failed row has output urls: %v", got.OutputURLs)
	}
}

func TestGenerateCreateErrorMarksNothing(t *testing.T) {
	store := newFakeGenerationStore()
	store.createErr = errors.New("db down")
	blob := newFakeBlobStore()
	runner := &fakeRunner{artifacts: []inference.Artifact{artifactOf("one")}}
	svc := newTestGenerationService(store, blob, runner)

	_, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "rose"})
	if err == nil {
		t.Fatal("expected create error to surface")
	}
	if runner.gotInput != nil {
		t.Fatal("inference must not run when the insert fails")
	}
	if gens, _ := store.List(context.Background(), "user-1"); len(gens) != 0 {
		t.Fatalf("expected no rows, got %d", len(gens))
	}
}

func TestGenerateUploadErrorMarksFailed(t *testing.T) {
	store := newFakeGenerationStore()
	blob := newFakeBlobStore()
	blob.putErr = errors.New("bucket unavailable")
	runner := &fakeRunner{artifacts: []inference.Artifact{artifactOf("one")}}
	svc := newTestGenerationService(store, blob, runner)

	_, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "rose"})
	if err == nil {
		t.Fatal("expected upload error to surface")
	}
	gens, _ := store.List(context.Background(), "user-1")
	if len(gens) != 1 || gens[0].Status != model.StatusFailed {
		t.Fatalf("row not marked failed: %+v", gens)
	}
	if !strings.Contains(gens[0].ErrorMsg, "bucket unavailable") {
		t.Fatalf("error_msg = %q", gens[0].ErrorMsg)
	}
}

func TestListReSignsStoredURLs(t *testing.T) {
	store := newFakeGenerationStore()
	blob := newFakeBlobStore()
	svc := newTestGenerationService(store, blob, &fakeRunner{})

	store.add(model.Generation{
		ID:     "gen-1",
		UserID: "user-1",
		Status: model.StatusCompleted,
		OutputURLs: []string{
			"http://minio.local/pages/generations/user-1/tattoo_1_0.png?X-Amz-Signature=stale",
			"http://minio.local/pages/generations/user-1/tattoo_1_1.png?X-Amz-Signature=stale",
		},
	})

	views, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if len(views[0].URLs) != 2 {
		t.Fatalf("expected 2 re-signed urls, got %d", len(views[0].URLs))
	}
	for _, u := range views[0].URLs {
		if strings.Contains(u, "stale") {
			t.Fatalf("stale signature served: %s", u)
		}
	}
}

func TestListDropsArtifactOnSignError(t *testing.T) {
	store := newFakeGenerationStore()
	blob := newFakeBlobStore()
	blob.signErrs["generations/user-1/tattoo_1_0.png"] = errors.New("sign refused")
	svc := newTestGenerationService(store, blob, &fakeRunner{})

	store.add(model.Generation{
		ID:     "gen-1",
		UserID: "user-1",
		Status: model.StatusCompleted,
		OutputURLs: []string{
			"http://minio.local/pages/generations/user-1/tattoo_1_0.png?X-Amz-Signature=stale",
			"http://minio.local/pages/generations/user-1/tattoo_1_1.png?X-Amz-Signature=stale",
		},
	})

	views, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views[0].URLs) != 1 {
		t.Fatalf("expected the failing artifact to be dropped, got %d urls", len(views[0].URLs))
	}
	if !strings.Contains(views[0].URLs[0], "tattoo_1_1.png") {
		t.Fatalf("wrong artifact survived: %s", views[0].URLs[0])
	}
}

func TestListEmptyOutputsYieldsEmptyURLList(t *testing.T) {
	store := newFakeGenerationStore()
	svc := newTestGenerationService(store, newFakeBlobStore(), &fakeRunner{})

	store.add(model.Generation{ID: "gen-1", UserID: "user-1", Status: model.StatusFailed})

	views, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if views[0].URLs == nil || len(views[0].URLs) != 0 {
		t.Fatalf("want empty non-nil url list, got %#v", views[0].URLs)
	}
}

func TestObjectKeyFromURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"with signature", "http://minio.local/pages/generations/u/a.png?X-Amz-Signature=x", "generations/u/a.png", true},
		{"without query", "http://minio.local/pages/generations/u/a.png", "generations/u/a.png", true},
		{"other bucket", "http://minio.local/other/generations/u/a.png", "", false},
		{"bucket marker only", "http://minio.local/pages/", "", false},
		{"garbage", "not a url", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := objectKeyFromURL(tt.url, "pages")
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("objectKeyFromURL(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
