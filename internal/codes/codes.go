// Package codes carries the registry's code lookup tables. The publisher
// loads them into the analytical store so the decoded views can resolve
// status, airworthiness and owner-type codes to descriptions.
package codes

// Code pairs a registry code with its human-readable description.
type Code struct {
	Code        string
	Description string
}

// Status covers the registration status codes observed in the master file.
var Status = []Code{
	{"V", "Valid"},
	{"M", "Valid - Manufacturer/Dealer"},
	{"T", "Valid - Trainee"},
	{"R", "Registration Pending"},
	{"N", "Non-Citizen Corp (flight hours not reported)"},
	{"E", "Revoked by Enforcement"},
	{"W", "Invalid/Ineffective"},
	{"D", "Expired Dealer"},
	{"A", "Triennial Form Mailed"},
	{"S", "Second Triennial Form Mailed"},
	{"X", "Enforcement Letter"},
	{"Z", "Permanent Reserved"},
	{"1", "Triennial Form Undeliverable"},
	{"2", "N-Number Assigned - Not Yet Registered"},
	{"3", "N-Number Assigned (Non Type Certificated) - Not Yet Registered"},
	{"4", "N-Number Assigned (Import) - Not Yet Registered"},
	{"5", "Reserved N-Number"},
	{"6", "Administratively Canceled"},
	{"7", "Sale Reported"},
	{"8", "Second Triennial Mailed - No Response"},
	{"9", "Registration Revoked"},
	{"10", "N-Number Assigned - Pending Cancellation"},
	{"11", "N-Number Assigned (Amateur) - Pending Cancellation"},
	{"12", "N-Number Assigned (Import) - Pending Cancellation"},
	{"13", "Registration Expired"},
	{"14", "First Notice for Re-Registration"},
	{"15", "Second Notice for Re-Registration"},
	{"16", "Registration Expired - Pending Cancellation"},
	{"17", "Sale Reported - Pending Cancellation"},
	{"18", "Sale Reported - Canceled"},
	{"19", "Registration Pending - Pending Cancellation"},
	{"20", "Registration Pending - Canceled"},
	{"21", "Revoked - Pending Cancellation"},
	{"22", "Revoked - Canceled"},
	{"23", "Expired Dealer - Pending Cancellation"},
	{"24", "Third Notice for Re-Registration"},
	{"25", "First Notice for Registration Renewal"},
	{"26", "Second Notice for Registration Renewal"},
	{"27", "Registration Expired"},
	{"28", "Third Notice for Registration Renewal"},
	{"29", "Registration Expired - Pending Cancellation"},
}

// Airworthiness covers the airworthiness classification codes.
var Airworthiness = []Code{
	{"1", "Standard"},
	{"2", "Limited"},
	{"3", "Restricted"},
	{"4", "Experimental"},
	{"5", "Provisional"},
	{"6", "Multiple"},
	{"7", "Primary"},
	{"8", "Special Flight Permit"},
	{"9", "Light Sport"},
}

// OwnerTypes covers the registrant type codes.
var OwnerTypes = []Code{
	{"1", "Individual"},
	{"2", "Partnership"},
	{"3", "Corporation"},
	{"4", "Co-Owned"},
	{"5", "Government"},
	{"7", "LLC"},
	{"8", "Non-Citizen Corporation"},
	{"9", "Non-Citizen Co-Owned"},
}

// multiPartyTypes are the registrant types that raise the owners summary
// any_trust_flag: the registered party is not a single individual or
// company.
var multiPartyTypes = map[string]struct{}{
	"2": {}, // Partnership
	"4": {}, // Co-Owned
	"5": {}, // Government
}

// IsTrustType reports whether an owner-type code raises the summary
// any_trust_flag.
func IsTrustType(ownerType string) bool {
	_, ok := multiPartyTypes[ownerType]
	return ok
}
