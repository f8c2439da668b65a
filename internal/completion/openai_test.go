package completion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIGenerate(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		want          string
		wantErr       bool
		wantTransient bool
	}{
		{
			name:   "success",
			status: 200,
			body:   `{"choices":[{"index":0,"message":{"role":"assistant","content":"Hello"},"finish_reason":"stop"}]}`,
			want:   "Hello",
		},
		{
			name:    "content filter",
			status:  200,
			body:    `{"choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`,
			wantErr: true,
		},
		{
			name:          "no choices",
			status:        200,
			body:          `{"choices":[]}`,
			wantErr:       true,
			wantTransient: true,
		},
		{
			name:    "unauthorized",
			status:  401,
			body:    `{"error":{"message":"bad key","type":"invalid_request_error"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			got, err := NewOpenAIClient("sk-test", ts.URL+"/v1").Generate(context.Background(), "gpt-test", "hi")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && IsTransient(err) != tt.wantTransient {
				t.Errorf("transient = %v, want %v (%v)", IsTransient(err), tt.wantTransient, err)
			}
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}
