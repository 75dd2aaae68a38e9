// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Namespaces holds the ontology namespace IRIs, without the trailing '#'.
type Namespaces struct {
	Base     string `json:"base" yaml:"base"`
	Geometry string `json:"geometry" yaml:"geometry"`
	Dynamics string `json:"dynamics" yaml:"dynamics"`
	Assembly string `json:"assembly" yaml:"assembly"`
	Units    string `json:"units" yaml:"units"`
	RDF      string `json:"rdf" yaml:"rdf"`
}

// ClassNames holds the local names of the classes individuals are typed with.
type ClassNames struct {
	PhysicalComponent     string `json:"physical_component" yaml:"physical_component"`
	NameInAssembly        string `json:"name_in_assembly" yaml:"name_in_assembly"`
	PositionCartesian3D   string `json:"position_cartesian_3d" yaml:"position_cartesian_3d"`
	RelationalBoundingBox string `json:"relational_bounding_box" yaml:"relational_bounding_box"`
	Mass                  string `json:"mass" yaml:"mass"`
	MomentOfInertia       string `json:"moment_of_inertia" yaml:"moment_of_inertia"`
	HoleFeature           string `json:"hole_feature" yaml:"hole_feature"`
	HoleExpression        string `json:"hole_expression" yaml:"hole_expression"`
	Direction             string `json:"direction" yaml:"direction"`
	Link                  string `json:"link" yaml:"link"`
	Joint                 string `json:"joint" yaml:"joint"`
	MechanicalConnection  string `json:"mechanical_connection" yaml:"mechanical_connection"`
}

// PredicateNames holds the local names of object and datatype properties.
type PredicateNames struct {
	Type                  string `json:"type" yaml:"type"`
	HasSubEntity          string `json:"has_sub_entity" yaml:"has_sub_entity"`
	HasSuperEntity        string `json:"has_super_entity" yaml:"has_super_entity"`
	HasAttribute          string `json:"has_attribute" yaml:"has_attribute"`
	IsAttributeOf         string `json:"is_attribute_of" yaml:"is_attribute_of"`
	HasSubAttribute       string `json:"has_sub_attribute" yaml:"has_sub_attribute"`
	HasSuperAttribute     string `json:"has_super_attribute" yaml:"has_super_attribute"`
	HasReferenceTo        string `json:"has_reference_to" yaml:"has_reference_to"`
	IsReferenceOf         string `json:"is_reference_of" yaml:"is_reference_of"`
	IsRealizedBy          string `json:"is_realized_by" yaml:"is_realized_by"`
	IsRealizationOf       string `json:"is_realization_of" yaml:"is_realization_of"`
	HasUnit               string `json:"has_unit" yaml:"has_unit"`
	HasValueString        string `json:"has_value_string" yaml:"has_value_string"`
	HasValueFloat         string `json:"has_value_float" yaml:"has_value_float"`
	HasCoordinateX        string `json:"has_coordinate_x" yaml:"has_coordinate_x"`
	HasCoordinateY        string `json:"has_coordinate_y" yaml:"has_coordinate_y"`
	HasCoordinateZ        string `json:"has_coordinate_z" yaml:"has_coordinate_z"`
	HasDirectionX         string `json:"has_direction_x" yaml:"has_direction_x"`
	HasDirectionY         string `json:"has_direction_y" yaml:"has_direction_y"`
	HasDirectionZ         string `json:"has_direction_z" yaml:"has_direction_z"`
	HasMinimumCoordinateX string `json:"has_minimum_coordinate_x" yaml:"has_minimum_coordinate_x"`
	HasMinimumCoordinateY string `json:"has_minimum_coordinate_y" yaml:"has_minimum_coordinate_y"`
	HasMinimumCoordinateZ string `json:"has_minimum_coordinate_z" yaml:"has_minimum_coordinate_z"`
	HasMaximumCoordinateX string `json:"has_maximum_coordinate_x" yaml:"has_maximum_coordinate_x"`
	HasMaximumCoordinateY string `json:"has_maximum_coordinate_y" yaml:"has_maximum_coordinate_y"`
	HasMaximumCoordinateZ string `json:"has_maximum_coordinate_z" yaml:"has_maximum_coordinate_z"`
	HasInertiaMassCenterX string `json:"has_inertia_mass_center_x" yaml:"has_inertia_mass_center_x"`
	HasInertiaMassCenterY string `json:"has_inertia_mass_center_y" yaml:"has_inertia_mass_center_y"`
	HasInertiaMassCenterZ string `json:"has_inertia_mass_center_z" yaml:"has_inertia_mass_center_z"`
}

// VocabularyConfig is the ontology vocabulary facts are written with. It is
// configuration: the extractor defines no vocabulary of its own.
type VocabularyConfig struct {
	Namespaces Namespaces     `json:"namespaces" yaml:"namespaces"`
	Classes    ClassNames     `json:"classes" yaml:"classes"`
	Predicates PredicateNames `json:"predicates" yaml:"predicates"`

	// Units maps CAD unit spellings (lower case) to unit individual names.
	Units map[string]string `json:"units" yaml:"units"`
}

// DefaultVocabulary returns the vocabulary the extractor ships with.
func DefaultVocabulary() VocabularyConfig {
	return VocabularyConfig{
		Namespaces: Namespaces{
			Base:     "http://localhost/ontologies/base.owl",
			Geometry: "http://localhost/ontologies/geometry.owl",
			Dynamics: "http://localhost/ontologies/dynamics.owl",
			Assembly: "http://localhost/ontologies/assembly.owl",
			Units:    "http://sweet.jpl.nasa.gov/1.1/units.owl",
			RDF:      "http://www.w3.org/1999/02/22-rdf-syntax-ns",
		},
		Classes: ClassNames{
			PhysicalComponent:     "PhysicalComponent",
			NameInAssembly:        "NameInAssembly",
			PositionCartesian3D:   "PositionCartesian3D",
			RelationalBoundingBox: "RelationalBoundingBox",
			Mass:                  "Mass",
			MomentOfInertia:       "MomentOfInertiaInMassCenter",
			HoleFeature:           "HoleFeature",
			HoleExpression:        "HoleExpression",
			Direction:             "Direction",
			Link:                  "Link",
			Joint:                 "Joint",
			MechanicalConnection:  "MechanicalConnection",
		},
		Predicates: PredicateNames{
			Type:                  "type",
			HasSubEntity:          "hasSubEntity",
			HasSuperEntity:        "hasSuperEntity",
			HasAttribute:          "hasAttribute",
			IsAttributeOf:         "isAttributeOf",
			HasSubAttribute:       "hasSubAttribute",
			HasSuperAttribute:     "hasSuperAttribute",
			HasReferenceTo:        "hasReferenceTo",
			IsReferenceOf:         "isReferenceOf",
			IsRealizedBy:          "isRealizedBy",
			IsRealizationOf:       "isRealizationOf",
			HasUnit:               "hasUnit",
			HasValueString:        "hasValueString",
			HasValueFloat:         "hasValueFloat",
			HasCoordinateX:        "hasCoordinateX",
			HasCoordinateY:        "hasCoordinateY",
			HasCoordinateZ:        "hasCoordinateZ",
			HasDirectionX:         "hasDirectionX",
			HasDirectionY:         "hasDirectionY",
			HasDirectionZ:         "hasDirectionZ",
			HasMinimumCoordinateX: "hasMinimumCoordinateX",
			HasMinimumCoordinateY: "hasMinimumCoordinateY",
			HasMinimumCoordinateZ: "hasMinimumCoordinateZ",
			HasMaximumCoordinateX: "hasMaximumCoordinateX",
			HasMaximumCoordinateY: "hasMaximumCoordinateY",
			HasMaximumCoordinateZ: "hasMaximumCoordinateZ",
			HasInertiaMassCenterX: "hasInertiaMassCenterX",
			HasInertiaMassCenterY: "hasInertiaMassCenterY",
			HasInertiaMassCenterZ: "hasInertiaMassCenterZ",
		},
		Units: map[string]string{
			"mm":          "milli_meter",
			"millimeters": "milli_meter",
			"millimeter":  "milli_meter",
			"degrees":     "degree",
			"kilogram":    "kilogram",
			"kg":          "kilogram",
			"kg - m2":     "kilogram_milli_meterSquare",
		},
	}
}

// IRI joins a namespace and a local name with '#'.
func IRI(namespace, local string) string {
	return namespace + "#" + local
}

// UnitName maps a CAD unit spelling to the configured unit individual name.
// Unknown spellings are returned unchanged.
func (v VocabularyConfig) UnitName(unit string) string {
	if name, ok := v.Units[strings.ToLower(unit)]; ok {
		return name
	}
	return unit
}
