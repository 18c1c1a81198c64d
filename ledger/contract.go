package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract surface of the ESGRegistry deployment.
const (
	MethodRegisterCompany     = "registerCompany"
	MethodIsCompanyRegistered = "isCompanyRegistered"
	MethodSubmitESGData       = "submitESGData"
	MethodVerifyESGData       = "verifyESGData"
	MethodGetRecord           = "getRecord"
	MethodGetCompanyRecords   = "getCompanyRecords"
	MethodCompanies           = "companies"
	MethodTotalCompanies      = "totalCompanies"
	MethodTotalRecords        = "totalRecords"

	EventCompanyRegistered = "CompanyRegistered"
	EventESGDataSubmitted  = "ESGDataSubmitted"
	EventESGDataVerified   = "ESGDataVerified"

	// FieldRecordID is the event field carrying the ledger-assigned record id.
	FieldRecordID = "recordId"
)

const esgRegistryABI = `[
  {"type":"function","name":"registerCompany","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"registrationId","type":"string"}],"outputs":[]},
  {"type":"function","name":"isCompanyRegistered","stateMutability":"view","inputs":[{"name":"company","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"submitESGData","stateMutability":"nonpayable","inputs":[{"name":"dataType","type":"string"},{"name":"value","type":"string"},{"name":"unit","type":"string"},{"name":"documentHash","type":"bytes32"},{"name":"comments","type":"string"}],"outputs":[]},
  {"type":"function","name":"verifyESGData","stateMutability":"nonpayable","inputs":[{"name":"recordId","type":"uint256"},{"name":"approved","type":"bool"},{"name":"comments","type":"string"}],"outputs":[]},
  {"type":"function","name":"getRecord","stateMutability":"view","inputs":[{"name":"recordId","type":"uint256"}],"outputs":[{"name":"company","type":"address"},{"name":"companyName","type":"string"},{"name":"timestamp","type":"uint256"},{"name":"dataType","type":"string"},{"name":"value","type":"string"},{"name":"unit","type":"string"},{"name":"verificationDocHash","type":"bytes32"},{"name":"verifier","type":"address"},{"name":"isVerified","type":"bool"},{"name":"comments","type":"string"}]},
  {"type":"function","name":"getCompanyRecords","stateMutability":"view","inputs":[{"name":"company","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"companies","stateMutability":"view","inputs":[{"name":"company","type":"address"}],"outputs":[{"name":"name","type":"string"},{"name":"registrationId","type":"string"},{"name":"companyAddress","type":"address"},{"name":"registrationTimestamp","type":"uint256"},{"name":"isRegistered","type":"bool"}]},
  {"type":"function","name":"totalCompanies","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalRecords","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"CompanyRegistered","inputs":[{"name":"company","type":"address","indexed":true},{"name":"name","type":"string","indexed":false}],"anonymous":false},
  {"type":"event","name":"ESGDataSubmitted","inputs":[{"name":"recordId","type":"uint256","indexed":true},{"name":"company","type":"address","indexed":true},{"name":"dataType","type":"string","indexed":false}],"anonymous":false},
  {"type":"event","name":"ESGDataVerified","inputs":[{"name":"recordId","type":"uint256","indexed":true},{"name":"verifier","type":"address","indexed":true},{"name":"approved","type":"bool","indexed":false}],"anonymous":false}
]`

// RegistryABI parses the ESGRegistry contract ABI.
func RegistryABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(esgRegistryABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse registry abi: %w", err)
	}
	return parsed, nil
}
