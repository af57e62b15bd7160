package mapper

import (
	"emcal/domain/mapping"
)

// DefaultDictionary declares the canonical simulation variables this
// system knows out of the box, with the meter-label aliases seen in
// utility exports. Callers with extra variables supply their own specs
// on top; the dictionary is ordinary data, not behavior.
func DefaultDictionary() []mapping.VariableSpec {
	return []mapping.VariableSpec{
		{
			ID:      "electricity_facility",
			Unit:    "J",
			Reducer: mapping.ReducerSum,
			Aliases: []string{
				"Electricity:Facility",
				"Whole Building Electricity",
				"Facility Total Electric Demand",
			},
		},
		{
			ID:      "gas_facility",
			Unit:    "J",
			Reducer: mapping.ReducerSum,
			Aliases: []string{
				"Gas:Facility",
				"NaturalGas:Facility",
				"Whole Building Gas",
			},
		},
		{
			ID:      "heating_energytransfer",
			Unit:    "J",
			Reducer: mapping.ReducerSum,
			Aliases: []string{
				"Heating:EnergyTransfer",
				"Zone Air System Sensible Heating Energy",
				"District Heating Energy",
			},
		},
		{
			ID:      "cooling_energytransfer",
			Unit:    "J",
			Reducer: mapping.ReducerSum,
			Aliases: []string{
				"Cooling:EnergyTransfer",
				"Zone Air System Sensible Cooling Energy",
				"District Cooling Energy",
			},
		},
		{
			ID:      "interiorlights_electricity",
			Unit:    "J",
			Reducer: mapping.ReducerSum,
			Aliases: []string{
				"InteriorLights:Electricity",
				"Lights Electric Energy",
			},
		},
		{
			ID:      "interiorequipment_electricity",
			Unit:    "J",
			Reducer: mapping.ReducerSum,
			Aliases: []string{
				"InteriorEquipment:Electricity",
				"Electric Equipment Electric Energy",
			},
		},
		{
			ID:      "zone_mean_air_temperature",
			Unit:    "C",
			Reducer: mapping.ReducerMean,
			Aliases: []string{
				"Zone Mean Air Temperature",
				"Indoor Air Temperature",
			},
		},
		{
			ID:      "site_outdoor_air_drybulb_temperature",
			Unit:    "C",
			Reducer: mapping.ReducerMean,
			Aliases: []string{
				"Site Outdoor Air Drybulb Temperature",
				"Outdoor Temperature",
			},
		},
	}
}
