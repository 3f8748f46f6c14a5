package heuristics

// DefaultDisposableDomains are well known temporary mailbox providers
var DefaultDisposableDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"throwaway.email",
	"fakeinbox.com",
	"getnada.com",
	"maildrop.cc",
	"yopmail.com",
	"sharklasers.com",
	"spam4.me",
	"trashmail.com",
	"getairmail.com",
	"mohmal.com",
	"temp-mail.org",
	"emailondeck.com",
	"guerrillamailblock.com",
	"fakemailgenerator.com",
	"discard.email",
	"mailnesia.com",
	"mintemail.com",
	"tempinbox.com",
	"mt2009.com",
	"mytrashmail.com",
	"spambox.us",
	"throwawaymail.com",
	"trash-mail.com",
}

// DefaultSuspiciousTLDs are top-level domains with a high share of abuse
var DefaultSuspiciousTLDs = []string{
	".zip", ".mov", ".top", ".click", ".xyz", ".club", ".work", ".date",
	".racing", ".win", ".stream", ".download", ".gdn", ".loan", ".men",
	".trade", ".bid", ".party", ".science", ".review", ".accountant",
	".faith", ".cricket", ".webcam",
}

// DefaultBrands are names commonly imitated by phishing domains
var DefaultBrands = []string{
	"google", "facebook", "amazon", "microsoft", "apple", "paypal",
	"netflix", "instagram", "twitter", "linkedin", "whatsapp", "gmail",
	"yahoo", "hotmail", "outlook", "banco", "bradesco", "itau",
	"santander", "caixa", "nubank", "inter", "mercadolivre",
}

// DefaultLists bundles the built-in lists
func DefaultLists() Lists {
	return Lists{
		DisposableDomains: DefaultDisposableDomains,
		SuspiciousTLDs:    DefaultSuspiciousTLDs,
		Brands:            DefaultBrands,
	}
}
