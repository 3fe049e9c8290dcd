package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowKeysGuide prints how to obtain the four credential values from the X
// developer portal
func ShowKeysGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "X API CREDENTIALS")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "artbot posts with OAuth 1.0a user context and needs four values.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Open https://developer.x.com/en/portal/dashboard and select")
	fmt.Fprintln(w, "        (or create) a project and app.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 2: Under 'User authentication settings' set app permissions to")
	fmt.Fprintln(w, "        'Read and write'. Tokens created before this change are read-only.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 3: On 'Keys and tokens':")
	fmt.Fprintln(w, "   - API Key and Secret          -> API_KEY, API_SECRET")
	fmt.Fprintln(w, "   - Access Token and Secret     -> ACCESS_TOKEN, ACCESS_TOKEN_SECRET")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 4: Either export the four variables, put them in a .env file, or")
	fmt.Fprintln(w, "        save them with 'artbot auth login'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Secrets are stored in the system keychain when one is available,")
	fmt.Fprintln(w, "otherwise in an encrypted file under your config directory.")
	fmt.Fprintln(w, rule)
}
