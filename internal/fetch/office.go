package fetch

import (
	"strings"

	"github.com/gchickering21/downballot/internal/dataset"
)

// officeRules maps raw office phrases (matched as substrings against the
// uppercased raw label) to the canonical office vocabulary. Order matters:
// the first match wins, so more specific phrases come first.
var officeRules = []struct {
	phrase    string
	canonical string
}{
	{"PRESIDENTIAL PREFERENCE", "presidential_preference"},
	{"US PRESIDENT", "us_president"},
	{"PRESIDENT OF THE UNITED STATES", "us_president"},
	{"US HOUSE OF REPRESENTATIVES", "us_house"},
	{"U.S. HOUSE", "us_house"},
	{"US SENATE", "us_senate"},
	{"U.S. SENATE", "us_senate"},
	{"LIEUTENANT GOVERNOR", "lieutenant_governor"},
	{"LT. GOVERNOR", "lieutenant_governor"},
	{"GOVERNOR", "governor"},
	{"ATTORNEY GENERAL", "attorney_general"},
	{"SECRETARY OF STATE", "secretary_of_state"},
	{"STATE TREASURER", "treasurer"},
	{"TREASURER", "treasurer"},
	{"STATE AUDITOR", "auditor"},
	{"AUDITOR", "auditor"},
	{"COMMISSIONER OF AGRICULTURE", "commissioner_of_agriculture"},
	{"COMMISSIONER OF INSURANCE", "commissioner_of_insurance"},
	{"COMMISSIONER OF LABOR", "commissioner_of_labor"},
	{"SUPERINTENDENT OF PUBLIC INSTRUCTION", "superintendent_of_public_instruction"},
	{"HOUSE OF REPRESENTATIVES", "state_house"},
	{"HOUSE OF DELEGATES", "state_house"},
	{"STATE SENATE", "state_senate"},
	{"SENATE OF VIRGINIA", "state_senate"},
	{"SUPREME COURT", "supreme_court"},
	{"COURT OF APPEALS", "court_of_appeals"},
	{"SUPERIOR COURT", "superior_court"},
	{"DISTRICT COURT", "district_court"},
	{"BOARD OF EDUCATION", "school_board"},
	{"SCHOOL BOARD", "school_board"},
	{"BOARD OF COMMISSIONERS", "county_commissioner"},
	{"COUNTY COMMISSIONER", "county_commissioner"},
	{"REGISTER OF DEEDS", "register_of_deeds"},
	{"SHERIFF", "sheriff"},
	{"DISTRICT ATTORNEY", "district_attorney"},
	{"CLERK OF", "clerk_of_court"},
	{"BOARD OF ALDERMEN", "city_council"},
	{"TOWN COUNCIL", "city_council"},
	{"CITY COUNCIL", "city_council"},
	{"VILLAGE COUNCIL", "city_council"},
	{"COUNCIL", "city_council"},
	{"ALDERMAN", "city_council"},
	{"ALDERMEN", "city_council"},
	{"MAYOR", "mayor"},
	{"SOIL AND WATER", "soil_and_water_supervisor"},
	{"TRUSTEE", "trustee"},
}

// classifyOffice maps a raw office label to the canonical vocabulary.
// Unmatched labels classify as "unclassified" with the raw label kept
// alongside; downstream consumers filter on the canonical value and fall
// back to the raw one.
func classifyOffice(raw string) (canonical, officeRaw string) {
	officeRaw = dataset.CleanText(raw)
	upper := strings.ToUpper(officeRaw)
	for _, rule := range officeRules {
		if strings.Contains(upper, rule.phrase) {
			return rule.canonical, officeRaw
		}
	}
	return "unclassified", officeRaw
}
