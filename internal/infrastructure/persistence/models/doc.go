// Package models contains the GORM persistence models of the billing tables.
// Domain entities stay free of ORM tags; each model converts with
// XxxModelFromDomain and ToDomain.
//
// Money columns are decimal(18,2), meter registers decimal(15,3). Tariff tiers
// and payment allocations are stored as JSONB through PriceTiers and
// Allocations.
package models
