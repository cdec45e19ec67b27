package models

type Setting struct {
	Row          int    `json:"-" sheet:"-"`
	Name         string `json:"setting_name" sheet:"Setting_Name"`
	Value        string `json:"setting_value" sheet:"Setting_Value"`
	LastModified string `json:"last_modified" sheet:"Last_Modified"`
}

type UpdateSettingRequest struct {
	Value string `json:"value"`
}

// Well known setting names
const (
	SettingCurrency            = "Currency"
	SettingCompanyName         = "Company_Name"
	SettingFinancialYearStart  = "Financial_Year_Start"
	SettingTaxRate             = "Tax_Rate"
	SettingLowBalanceThreshold = "Low_Balance_Threshold"
	SettingAutoRefreshInterval = "Auto_Refresh_Interval"
)
