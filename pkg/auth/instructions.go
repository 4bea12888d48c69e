package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide writes step-by-step instructions for copying the bearer
// token out of a logged-in browser session
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "EVERYDAY REWARDS TOKEN GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This tool needs the bearer token your browser uses for the rewards site.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Log in at https://www.woolworthsrewards.com.au")
	fmt.Fprintln(w, "STEP 2: Open Developer Tools (F12, or Cmd+Option+I on Mac)")
	fmt.Fprintln(w, "STEP 3: Open the Network tab and open 'My Activity' on the site")
	fmt.Fprintln(w, "STEP 4: Click a request to api.woolworthsrewards.com.au or api-wr.com")
	fmt.Fprintln(w, "STEP 5: Under Request Headers find 'Authorization: Bearer <token>'")
	fmt.Fprintln(w, "        and copy everything after 'Bearer '")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TIPS:")
	fmt.Fprintln(w, "   - Tokens expire; repeat these steps when runs start failing with 401")
	fmt.Fprintln(w, "   - The token gives access to your rewards account, never share it")
	fmt.Fprintln(w, "   - 'rewardsreceipts auth login' keeps it in your system keychain")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

// ShowQuickTokenGuide writes the condensed version for experienced users
func ShowQuickTokenGuide(w io.Writer) {
	fmt.Fprintln(w, "Quick guide: F12 -> Network -> any rewards API request -> Headers -> Authorization: Bearer ...")
	fmt.Fprintln(w, "   Type 'help' for detailed instructions")
}
