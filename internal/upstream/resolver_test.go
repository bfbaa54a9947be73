package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/suite"
)

type ResolverSuite struct {
	suite.Suite
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func envLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func (s *ResolverSuite) TestAzureSelectionRequiresAllThreeFields() {
	for _, kind := range []Kind{KindTranscription, KindCleanup} {
		names, err := NamesFor(kind)
		s.Require().NoError(err)

		full := map[string]string{
			names.APIKey:          "public-key",
			names.AzureEndpoint:   "https://res.openai.azure.com",
			names.AzureAPIKey:     "azure-key",
			names.AzureDeployment: "dep",
		}
		cases := []struct {
			name      string
			drop      string
			wantAzure bool
		}{
			{"all present", "", true},
			{"missing endpoint", names.AzureEndpoint, false},
			{"missing key", names.AzureAPIKey, false},
			{"missing deployment", names.AzureDeployment, false},
		}
		for _, tc := range cases {
			env := map[string]string{}
			for k, v := range full {
				if k != tc.drop {
					env[k] = v
				}
			}
			profile, err := ResolveProfile(envLookup(env), kind)
			s.Require().NoError(err, "%s/%s", kind, tc.name)
			s.Equal(tc.wantAzure, profile.UseAzure, "%s/%s", kind, tc.name)
			if tc.wantAzure {
				s.Equal("azure-key", profile.APIKey)
				s.Equal("dep", profile.Deployment)
			} else {
				s.Equal("public-key", profile.APIKey)
			}
		}
	}
}

func (s *ResolverSuite) TestAllAbsentFailsWithMissingCredentials() {
	for _, kind := range []Kind{KindTranscription, KindCleanup} {
		_, err := ResolveProfile(envLookup(map[string]string{}), kind)
		s.Require().ErrorIs(err, ErrMissingCredentials)
	}
}

func (s *ResolverSuite) TestPartialAzureWithoutPublicKeyFails() {
	_, err := ResolveProfile(envLookup(map[string]string{
		"AZURE_OPENAI_ENDPOINT": "https://res.openai.azure.com",
		"AZURE_OPENAI_API_KEY":  "azure-key",
	}), KindTranscription)
	s.Require().ErrorIs(err, ErrMissingCredentials)
}

func (s *ResolverSuite) TestKindsUseIndependentKeys() {
	env := envLookup(map[string]string{
		"AZURE_OPENAI_ENDPOINT":       "https://res.openai.azure.com",
		"AZURE_OPENAI_API_KEY":        "audio-key",
		"AZURE_OPENAI_DEPLOYMENT":     "gpt-4o-transcribe",
		"AZURE_OPENAI_LLM_API_KEY":    "llm-key",
		"AZURE_OPENAI_LLM_DEPLOYMENT": "gpt-5",
	})

	audio, err := ResolveProfile(env, KindTranscription)
	s.Require().NoError(err)
	llm, err := ResolveProfile(env, KindCleanup)
	s.Require().NoError(err)

	s.Equal("audio-key", audio.APIKey)
	s.Equal("gpt-4o-transcribe", audio.Deployment)
	s.Equal("llm-key", llm.APIKey)
	s.Equal("gpt-5", llm.Deployment)
}

func (s *ResolverSuite) TestAPIVersionDefaultsAndOverrides() {
	env := map[string]string{"OPENAI_API_KEY": "k"}
	profile, err := ResolveProfile(envLookup(env), KindCleanup)
	s.Require().NoError(err)
	s.Equal(DefaultAPIVersion, profile.APIVersion)

	env["AZURE_OPENAI_API_VERSION"] = "2025-01-01-preview"
	profile, err = ResolveProfile(envLookup(env), KindCleanup)
	s.Require().NoError(err)
	s.Equal("2025-01-01-preview", profile.APIVersion)
}

func (s *ResolverSuite) TestUnknownKind() {
	_, err := ResolveProfile(envLookup(nil), Kind("embedding"))
	s.Require().Error(err)
}

func (s *ResolverSuite) TestBaseURLTrimsTrailingSlash() {
	p := Profile{UseAzure: true, Endpoint: "https://res.openai.azure.com/", Deployment: "dep"}
	s.Equal("https://res.openai.azure.com/openai/deployments/dep", p.BaseURL())
	s.Empty(Profile{}.BaseURL())
}

func (s *ResolverSuite) TestAzureClientTargetsDeployment() {
	var gotPath, gotVersion, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-5",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "ok"},
			}},
		})
	}))
	defer server.Close()

	client, err := Resolve(envLookup(map[string]string{
		"AZURE_OPENAI_ENDPOINT":       server.URL,
		"AZURE_OPENAI_LLM_API_KEY":    "azure-key",
		"AZURE_OPENAI_LLM_DEPLOYMENT": "cleanup-dep",
	}), KindCleanup)
	s.Require().NoError(err)
	s.True(client.Profile.UseAzure)

	_, err = client.API.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model:    openai.ChatModel("gpt-5"),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")},
	})
	s.Require().NoError(err)
	s.Equal("/openai/deployments/cleanup-dep/chat/completions", gotPath)
	s.Equal(DefaultAPIVersion, gotVersion)
	s.Equal("azure-key", gotKey)
}

func (s *ResolverSuite) TestPublicClientDoesNotRetry() {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	client, err := Resolve(envLookup(map[string]string{"OPENAI_API_KEY": "k"}), KindCleanup, option.WithBaseURL(server.URL+"/"))
	s.Require().NoError(err)
	s.False(client.Profile.UseAzure)

	_, err = client.API.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model:    openai.ChatModel("gpt-5"),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")},
	})
	s.Require().Error(err)
	s.Equal(1, calls)
}
