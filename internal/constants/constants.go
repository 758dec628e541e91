package constants

const USER_AGENT = "esportsync/0.1.0 (+https://github.com/Amund211/esportsync)"
