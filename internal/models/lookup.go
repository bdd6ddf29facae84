package models

// Timezone is an IANA zone offered in convention forms.
type Timezone struct {
	ID               int    `json:"id"`
	IANAName         string `json:"iana_name"`
	Label            string `json:"label"`
	UTCOffsetMinutes int    `json:"utc_offset_minutes"`
}

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type State struct {
	ID          int    `json:"id"`
	CountryCode string `json:"country_code"`
	Code        string `json:"code"`
	Name        string `json:"name"`
}

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}
