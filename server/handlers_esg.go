package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"esgledger/auth"
	"esgledger/ledger"
	"esgledger/pipeline"
)

// SubmitRecord runs the ESG submission pipeline for the authenticated company.
func (s *Server) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	var input pipeline.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "invalid payload"))
		return
	}
	result, err := s.pipelines.SubmitRecord(r.Context(), claims.ParticipantID, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// OwnerRecords lists the caller's submissions merged with ledger data.
func (s *Server) OwnerRecords(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	records, err := s.pipelines.OwnerRecords(r.Context(), claims.ParticipantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// RecordByID returns the ledger and mirror projections of one record.
func (s *Server) RecordByID(w http.ResponseWriter, r *http.Request) {
	view, err := s.pipelines.RecordByLedgerID(r.Context(), chi.URLParam(r, "recordId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DataType describes one accepted reporting category.
type DataType struct {
	Value       string   `json:"value"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Units       []string `json:"units"`
}

var dataTypeCatalog = []DataType{
	{Value: "carbon_emissions", Label: "Carbon Emissions", Description: "Total greenhouse gas emissions", Units: []string{"tonnes CO2", "kg CO2", "tonnes CO2e"}},
	{Value: "energy_consumption", Label: "Energy Consumption", Description: "Total energy usage", Units: []string{"MWh", "kWh", "GJ", "BTU"}},
	{Value: "water_usage", Label: "Water Usage", Description: "Total water consumption", Units: []string{"cubic meters", "liters", "gallons"}},
	{Value: "waste_generation", Label: "Waste Generation", Description: "Total waste produced", Units: []string{"tonnes", "kg", "cubic meters"}},
	{Value: "renewable_energy", Label: "Renewable Energy", Description: "Renewable energy usage percentage", Units: []string{"%", "MWh", "kWh"}},
	{Value: "employee_satisfaction", Label: "Employee Satisfaction", Description: "Employee satisfaction score", Units: []string{"score (1-10)", "%", "index"}},
	{Value: "safety_incidents", Label: "Safety Incidents", Description: "Number of workplace safety incidents", Units: []string{"count", "per 1000 employees", "rate"}},
	{Value: "diversity_ratio", Label: "Diversity Ratio", Description: "Workforce diversity percentage", Units: []string{"%", "ratio", "index"}},
	{Value: "supply_chain_ethics", Label: "Supply Chain Ethics", Description: "Ethical supply chain score", Units: []string{"score (1-10)", "%", "compliance rate"}},
	{Value: "other", Label: "Other", Description: "Any other sustainability metric", Units: []string{}},
}

// DataTypes lists the accepted ESG reporting categories.
func (s *Server) DataTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"dataTypes": dataTypeCatalog})
}
