// Package upstream picks and builds the OpenAI API client used for each capability.
//
// A capability targets an Azure OpenAI deployment only when its endpoint, key and
// deployment name are all configured; otherwise it falls back to the public OpenAI API.
package upstream

import (
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultAPIVersion is sent as api-version to Azure when none is configured.
const DefaultAPIVersion = "2024-06-01"

// ErrMissingCredentials means neither the Azure nor the public OpenAI profile is usable.
var ErrMissingCredentials = errors.New("missing OpenAI credentials")

type Kind string

const (
	KindTranscription Kind = "transcription"
	KindCleanup       Kind = "cleanup"
)

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// VarNames is the capability-scoped set of configuration keys.
type VarNames struct {
	APIKey          string
	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AzureAPIVersion string
}

var varNames = map[Kind]VarNames{
	KindTranscription: {
		APIKey:          "OPENAI_API_KEY",
		AzureEndpoint:   "AZURE_OPENAI_ENDPOINT",
		AzureAPIKey:     "AZURE_OPENAI_API_KEY",
		AzureDeployment: "AZURE_OPENAI_DEPLOYMENT",
		AzureAPIVersion: "AZURE_OPENAI_API_VERSION",
	},
	KindCleanup: {
		APIKey:          "OPENAI_API_KEY",
		AzureEndpoint:   "AZURE_OPENAI_ENDPOINT",
		AzureAPIKey:     "AZURE_OPENAI_LLM_API_KEY",
		AzureDeployment: "AZURE_OPENAI_LLM_DEPLOYMENT",
		AzureAPIVersion: "AZURE_OPENAI_API_VERSION",
	},
}

// NamesFor returns the configuration keys read for kind.
func NamesFor(kind Kind) (VarNames, error) {
	names, ok := varNames[kind]
	if !ok {
		return VarNames{}, fmt.Errorf("unknown client kind %q", kind)
	}
	return names, nil
}

// Profile is the resolved connection settings for one capability.
type Profile struct {
	UseAzure   bool
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// BaseURL is the Azure deployment root, empty for the public API.
func (p Profile) BaseURL() string {
	if !p.UseAzure {
		return ""
	}
	return strings.TrimRight(p.Endpoint, "/") + "/openai/deployments/" + strings.Trim(p.Deployment, "/")
}

// ResolveProfile selects the Azure profile when all three of its fields are present and
// the public profile otherwise. It never touches the network.
func ResolveProfile(lookup LookupFunc, kind Kind) (Profile, error) {
	names, err := NamesFor(kind)
	if err != nil {
		return Profile{}, err
	}
	get := func(key string) string {
		if lookup == nil {
			return ""
		}
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	apiVersion := get(names.AzureAPIVersion)
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	endpoint := get(names.AzureEndpoint)
	azureKey := get(names.AzureAPIKey)
	deployment := get(names.AzureDeployment)
	if endpoint != "" && azureKey != "" && deployment != "" {
		return Profile{
			UseAzure:   true,
			APIKey:     azureKey,
			Endpoint:   endpoint,
			Deployment: deployment,
			APIVersion: apiVersion,
		}, nil
	}

	apiKey := get(names.APIKey)
	if apiKey == "" {
		return Profile{}, fmt.Errorf("%s client: %w", kind, ErrMissingCredentials)
	}
	return Profile{APIKey: apiKey, APIVersion: apiVersion}, nil
}

// Client is an immutable, resolved API client that is safe to share between requests.
type Client struct {
	Kind    Kind
	Profile Profile
	API     openai.Client
}

// NewClient builds the SDK client for profile. SDK-level retries are disabled: the
// cleanup service owns retrying and transcription is a single pass-through call.
func NewClient(profile Profile, extra ...option.RequestOption) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(profile.APIKey),
		option.WithMaxRetries(0),
	}
	if profile.UseAzure {
		opts = append(opts,
			option.WithBaseURL(profile.BaseURL()+"/"),
			option.WithQuery("api-version", profile.APIVersion),
			// Azure authenticates with api-key rather than the bearer token.
			option.WithHeader("api-key", profile.APIKey),
		)
	}
	opts = append(opts, extra...)
	return openai.NewClient(opts...)
}

// Resolve reads kind's configuration and builds its client.
func Resolve(lookup LookupFunc, kind Kind, extra ...option.RequestOption) (*Client, error) {
	profile, err := ResolveProfile(lookup, kind)
	if err != nil {
		return nil, err
	}
	return &Client{
		Kind:    kind,
		Profile: profile,
		API:     NewClient(profile, extra...),
	}, nil
}
