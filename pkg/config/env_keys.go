package config

// EnvPrefix is passed to envconfig; keys carry the full SHOPFRONT_ prefix
// in their tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv          = "SHOPFRONT_APP_ENV"
	EnvAPIBaseURL      = "SHOPFRONT_API_BASE_URL"
	EnvCredentialsPath = "SHOPFRONT_CREDENTIALS_PATH"
)
