package wizard

// Field keys of the accumulated wizard record. The terminal record is the
// flat key/value map persisted by the entry store.
const (
	KeyHost          = "host"
	KeyPort          = "port"
	KeyUsername      = "username"
	KeyPassword      = "password"
	KeyMethod        = "method"
	KeyToken         = "token"
	KeyFolder        = "folder"
	KeyResources     = "resources"
	KeyAmazonFwds    = "amazon_fwds"
	KeyAmazonDays    = "amazon_days"
	KeyScanInterval  = "scan_interval"
	KeyIMAPTimeout   = "imap_timeout"
	KeyDuration      = "duration"
	KeyGenerateMP4   = "generate_mp4"
	KeyAllowExternal = "allow_external"
	KeyCustomImg     = "custom_img"
	KeyCustomImgFile = "custom_img_file"
	KeyClientID      = "client_id"
	KeyClientSecret  = "client_secret"
	KeyTenantID      = "tenant_id"
)

// Authentication methods. The method is fixed once chosen at the first step
// and never mutated by later steps.
const (
	MethodStandard = "standard"
	MethodO365     = "o365"
	MethodGmail    = "gmail"
)

// Defaults used when a field has not been submitted yet.
const (
	DefaultPort         = 993
	DefaultFolder       = "INBOX"
	DefaultScanInterval = 5
	DefaultIMAPTimeout  = 30
	DefaultAmazonDays   = 3
	DefaultDuration     = 5

	// OutlookHost and GmailHost are filled in automatically when the
	// corresponding method is selected.
	OutlookHost = "outlook.office365.com"
	GmailHost   = "imap.gmail.com"
)

// Numeric floors enforced at the resource-selection step.
const (
	MinScanInterval = 5
	MinIMAPTimeout  = 10
)

// Resources lists the monitored delivery categories offered at the
// resource-selection step.
func Resources() []string {
	return []string{
		"amazon_packages",
		"amazon_delivered",
		"dhl_delivered",
		"dhl_delivering",
		"fedex_delivered",
		"fedex_delivering",
		"ups_delivered",
		"ups_delivering",
		"usps_delivered",
		"usps_delivering",
		"usps_mail",
	}
}
