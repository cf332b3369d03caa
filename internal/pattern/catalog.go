package pattern

// defaultRules is the built-in catalog. Keyword lists are literal substrings
// checked by the automaton before the regexp ever runs, so adding a rule here
// does not add a full-text regex pass.
//
// Entropy-gated generic rules ship as log-only or disabled: they fire on too
// much ordinary text to redact by default, but their hit counts are worth
// watching before enabling them per deployment.
var defaultRules = []Rule{
	{
		ID:            "openai",
		Name:          "OpenAI API Key",
		Expr:          `\bsk-[a-zA-Z0-9]{48,}\b`,
		Keywords:      []string{"sk-", "openai"},
		Prefix:        "API_KEY",
		LiteralPrefix: "sk-",
	},
	{
		ID:            "anthropic",
		Name:          "Anthropic API Key",
		Expr:          `\bsk-ant-[a-zA-Z0-9\-_=+/]{95,100}\b`,
		Keywords:      []string{"sk-ant", "anthropic"},
		Prefix:        "ANTHROPIC_KEY",
		LiteralPrefix: "sk-ant-",
	},
	{
		ID:            "aws_access_key",
		Name:          "AWS Access Key",
		Expr:          `\b(?:AKIA|ABIA|ACCA)[A-Z0-9]{16}\b`,
		Keywords:      []string{"akia", "abia", "acca", "aws"},
		Prefix:        "AWS_ACCESS_KEY",
		LiteralPrefix: "AKIA",
	},
	{
		ID:         "aws_secret",
		Name:       "AWS Secret",
		Expr:       `\b[A-Za-z0-9+/]{40}\b`,
		Keywords:   []string{"aws", "secret"},
		Prefix:     "AWS_SECRET",
		MinEntropy: 3.0,
		State:      StateLogOnly,
	},
	{
		ID:            "github_pat",
		Name:          "GitHub Personal Access Token",
		Expr:          `\b(?:ghp|gho|ghu|ghs|ghr|github_pat)_[a-zA-Z0-9_]{36,255}\b`,
		Keywords:      []string{"ghp_", "gho_", "ghu_", "ghs_", "ghr_", "github_pat_"},
		Prefix:        "GITHUB_TOKEN",
		LiteralPrefix: "gh",
	},
	{
		ID:            "stripe",
		Name:          "Stripe API Key",
		Expr:          `\b(?:sk|pk|rk)_(?:live|test)_[a-zA-Z0-9]{24,99}\b`,
		Keywords:      []string{"sk_live_", "sk_test_", "pk_live_", "pk_test_", "rk_live_", "rk_test_"},
		Prefix:        "STRIPE_KEY",
		LiteralPrefix: "sk_",
	},
	{
		ID:            "slack_token",
		Name:          "Slack Token",
		Expr:          `\bxox[bpras]-[0-9a-zA-Z\-]{20,146}\b`,
		Keywords:      []string{"xoxb", "xoxp", "xoxr", "xoxa", "xoxs", "slack"},
		Prefix:        "SLACK_TOKEN",
		LiteralPrefix: "xox",
	},
	{
		ID:            "google_api",
		Name:          "Google API Key",
		Expr:          `\bAIza[0-9a-zA-Z_\-]{35}\b`,
		Keywords:      []string{"aiza", "google"},
		Prefix:        "GOOGLE_API_KEY",
		LiteralPrefix: "AIza",
	},
	{
		ID:         "generic_api_key",
		Name:       "Generic API Key",
		Expr:       `\b[a-zA-Z0-9]{32,}\b`,
		Keywords:   []string{"api", "key", "token", "secret"},
		Prefix:     "API_KEY",
		MinEntropy: 3.5,
		State:      StateDisabled,
	},
	{
		ID:         "hex_secret",
		Name:       "Hex Secret",
		Expr:       `\b[a-f0-9]{32,}\b`,
		Keywords:   []string{"secret", "token", "key"},
		Prefix:     "HEX_SECRET",
		MinEntropy: 2.5,
		State:      StateDisabled,
	},
	{
		ID:            "jwt_token",
		Name:          "JWT Token",
		Expr:          `\beyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+\b`,
		Keywords:      []string{"eyj", "jwt", "bearer", "authorization"},
		Prefix:        "JWT_TOKEN",
		LiteralPrefix: "eyJ",
	},
	{
		ID:            "private_key_header",
		Name:          "Private Key",
		Expr:          `-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`,
		Keywords:      []string{"begin", "private", "key"},
		Prefix:        "PRIVATE_KEY",
		LiteralPrefix: "-----BEGIN ",
	},
}
