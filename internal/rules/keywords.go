package rules

// Comment keyword families, in evaluation order.
var commentFamilies = []struct {
	name     string
	category Category
	keywords []string
}{
	{"feature_request", FeatureRequests, []string{"feature request", "feature", "would be great", "please add", "enhancement"}},
	{"connectivity", ConnectivityProblems, []string{
		"unable to connect", "no internet", "network error", "api failed", "server error", "timeout",
		"won't connect", "wont connect", "can't connect", "cannot connect",
	}},
	{"authentication", AuthenticationAccess, []string{
		"login", "sign in", "authentication", "password", "otp", "permission denied", "access denied", "session",
	}},
	{"performance", PerformanceIssues, []string{
		"slow", "lag", "freeze", "freezes", "hanging", "loading forever", "takes too long", "sluggish",
	}},
	{"crash", CrashStability, []string{"crash", "crashes", "force close", "stopped working", "app closed unexpectedly"}},
	{"integration", IntegrationFailures, []string{
		"printer", "bluetooth", "weighing scale", "payment gateway", "google", "firebase", "upi", "razorpay",
	}},
	{"configuration", ConfigurationSettings, []string{
		"settings", "configuration", "preference", "does not save setting", "default value wrong",
	}},
	{"data_integrity", DataIntegrityIssues, []string{
		"wrong total", "incorrect", "mismatch", "duplicate", "missing data", "data lost", "not saved",
	}},
	{"ui_ux", UIUXIssues, []string{
		"ui", "ux", "alignment", "overlap", "cut off", "hard to read", "too small", "button not visible",
	}},
	{"functional", FunctionalErrors, []string{
		"does not work", "not working", "cannot", "can't", "fails", "not possible", "broken", "stuck action",
	}},
	{"compatibility", CompatibilityIssues, []string{
		"only on my phone", "android 14", "ios", "tablet", "resolution", "screen size",
	}},
}

var (
	ocrAuth          = []string{"sign in", "login", "password", "otp"}
	ocrConnectivity  = []string{"unable to connect", "no internet", "network error", "api request failed", "timeout"}
	ocrError         = []string{"error", "exception", "fatal", "stack trace"}
	ocrLoading       = []string{"loading", "please wait", "processing"}
	ocrLoaded        = []string{"success", "completed"}
	ocrConfiguration = []string{"settings", "preferences", "configuration"}
	ocrIntegration   = []string{"payment", "transaction", "gateway", "upi", "printer", "bluetooth"}
	ocrAmounts       = []string{"total", "balance", "amount"}
	ocrMismatch      = []string{"wrong", "mismatch", "not matching"}
)

var (
	filenameError        = []string{"error"}
	filenameAuth         = []string{"login", "signin"}
	filenameConnectivity = []string{"timeout", "network"}
)

// explicit signals used for escalation, strongest first
var (
	explicitCrash        = []string{"crash", "force close", "stopped working", "app closed unexpectedly"}
	explicitConnectivity = []string{
		"unable to connect", "network error", "api failed", "api request failed", "timeout",
		"no internet", "won't connect", "wont connect", "can't connect", "cannot connect",
	}
	explicitAuth = []string{"login", "sign in", "signin", "password", "otp"}
)

var (
	weakCurrency     = []string{"rs", "inr", "₹", "amount", "total", "balance", "coin", "coins"}
	weakMismatch     = []string{"wrong", "mismatch", "less", "more", "only", "difference"}
	weakMismatchText = []string{"not matching"}
	weakError        = []string{"error", "fail", "failed", "not working", "does not work", "unable", "stuck", "cannot", "can't"}
	weakConnectivity = []string{"no internet", "network", "server", "timeout", "api"}
	weakAuth         = []string{"otp", "signin", "sign in", "login", "password", "pin"}
)
