package melolo

import (
	"maps"
	"net/url"

	"jywanonton/internal/identity"
)

const defaultBaseURL = "https://api.tmtreader.com"

// Profile is the static part of every upstream request: where to send it and
// the headers and query parameters the mobile app always attaches. A Profile
// is never mutated after NewClient copies it.
type Profile struct {
	BaseURL string
	Headers map[string]string
	Params  url.Values
}

// DefaultProfile is the request fingerprint upstream is known to accept,
// bound to the given device identity.
func DefaultProfile(id identity.ClientIdentity) Profile {
	headers := map[string]string{
		"Host":                      "api.tmtreader.com",
		"Accept":                    "application/json; charset=utf-8,application/x-protobuf",
		"Accept-Encoding":           "gzip, deflate, br",
		"X-Xs-From-Web":             "false",
		"Age-Range":                 "8",
		"Sdk-Version":               "2",
		"Passport-Sdk-Version":      "50357",
		"X-Vc-Bdturing-Sdk-Version": "2.2.1.i18n",
		"User-Agent":                "ScRaPe/9.9 (KaliLinux; Nusantara Os; My/Shannz)",
	}

	params := url.Values{}
	for k, v := range map[string]string{
		"iid":                   id.InstallID,
		"device_id":             id.DeviceID,
		"ac":                    "wifi",
		"channel":               "gp",
		"aid":                   "645713",
		"app_name":              "Melolo",
		"version_code":          "49819",
		"version_name":          "4.9.8",
		"device_platform":       "android",
		"os":                    "android",
		"ssmix":                 "a",
		"device_type":           "ScRaPe",
		"device_brand":          "Shannz",
		"language":              "in",
		"os_api":                "28",
		"os_version":            "15",
		"openudid":              id.OpenUDID,
		"manifest_version_code": "49819",
		"resolution":            "9001600",
		"dpi":                   "320",
		"update_version_code":   "49819",
		"current_region":        "ID",
		"carrier_region":        "ID",
		"app_language":          "id",
		"sys_language":          "in",
		"app_region":            "ID",
		"sys_region":            "ID",
		"mcc_mnc":               "46002",
		"carrier_region_v2":     "460",
		"user_language":         "id",
		"time_zone":             "Asia/Jakarta",
		"ui_language":           "in",
		"cdid":                  id.CDID,
	} {
		params.Set(k, v)
	}

	return Profile{
		BaseURL: defaultBaseURL,
		Headers: headers,
		Params:  params,
	}
}

func (p Profile) clone() Profile {
	params := make(url.Values, len(p.Params))
	for k, v := range p.Params {
		params[k] = append([]string(nil), v...)
	}
	return Profile{
		BaseURL: p.BaseURL,
		Headers: maps.Clone(p.Headers),
		Params:  params,
	}
}
