package gateway

import "strings"

// SubdomainFromHost extracts the tenant subdomain from an HTTP Host value.
//
// When baseDomain is set, the host must be exactly one label under it:
// "myshop.storeflow.app" with base "storeflow.app" yields "myshop", while
// "a.b.storeflow.app" and the bare base yield "". Without a baseDomain the
// first label of any host with three or more labels is used, which covers
// local setups like "myshop.localtest.me".
func SubdomainFromHost(host, baseDomain string) string {
	host, _, _ = strings.Cut(host, ":")
	host = strings.ToLower(host)

	if baseDomain != "" {
		sub, ok := strings.CutSuffix(host, "."+strings.ToLower(baseDomain))
		if !ok || sub == "" || strings.Contains(sub, ".") {
			return ""
		}
		return sub
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 || labels[0] == "" {
		return ""
	}
	return labels[0]
}
