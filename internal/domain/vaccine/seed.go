package vaccine

import "time"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultInventory is the clinic's starting stock.
var DefaultInventory = []Vaccine{
	{Name: "BCG", Manufacturer: "Serum Institute of India", BatchNumber: "BCG-2024-001", ExpiryDate: date(2026, time.June, 15), Quantity: 150, MinStockLevel: 20},
	{Name: "Hepatitis B", Manufacturer: "GlaxoSmithKline", BatchNumber: "HEPB-2024-045", ExpiryDate: date(2026, time.July, 20), Quantity: 200, MinStockLevel: 25},
	{Name: "DTP (Diphtheria, Tetanus, Pertussis)", Manufacturer: "Sanofi Pasteur", BatchNumber: "DTP-2024-089", ExpiryDate: date(2026, time.May, 10), Quantity: 180, MinStockLevel: 20},
	{Name: "OPV (Oral Polio Vaccine)", Manufacturer: "Bio-Med", BatchNumber: "OPV-2024-123", ExpiryDate: date(2026, time.June, 30), Quantity: 250, MinStockLevel: 30},
	{Name: "MMR (Measles, Mumps, Rubella)", Manufacturer: "Merck & Co.", BatchNumber: "MMR-2024-067", ExpiryDate: date(2026, time.August, 15), Quantity: 120, MinStockLevel: 15},
	{Name: "Pneumococcal Conjugate (PCV13)", Manufacturer: "Pfizer", BatchNumber: "PCV-2024-034", ExpiryDate: date(2026, time.July, 5), Quantity: 140, MinStockLevel: 18},
	{Name: "Rotavirus", Manufacturer: "GlaxoSmithKline", BatchNumber: "ROTA-2024-078", ExpiryDate: date(2026, time.June, 25), Quantity: 160, MinStockLevel: 20},
	{Name: "Varicella (Chickenpox)", Manufacturer: "Merck & Co.", BatchNumber: "VAR-2024-091", ExpiryDate: date(2026, time.August, 30), Quantity: 100, MinStockLevel: 12},
	{Name: "Hepatitis A", Manufacturer: "GlaxoSmithKline", BatchNumber: "HEPA-2024-056", ExpiryDate: date(2026, time.July, 12), Quantity: 110, MinStockLevel: 15},
	{Name: "Influenza (Flu)", Manufacturer: "Sanofi Pasteur", BatchNumber: "FLU-2024-145", ExpiryDate: date(2026, time.May, 30), Quantity: 300, MinStockLevel: 40},
	{Name: "HPV (Human Papillomavirus)", Manufacturer: "Merck & Co.", BatchNumber: "HPV-2024-023", ExpiryDate: date(2026, time.June, 18), Quantity: 90, MinStockLevel: 10},
	{Name: "Meningococcal ACWY", Manufacturer: "Sanofi Pasteur", BatchNumber: "MEN-2024-112", ExpiryDate: date(2026, time.August, 8), Quantity: 85, MinStockLevel: 10},
	{Name: "Tdap (Tetanus, Diphtheria, Pertussis)", Manufacturer: "GlaxoSmithKline", BatchNumber: "TDAP-2024-098", ExpiryDate: date(2026, time.July, 28), Quantity: 130, MinStockLevel: 15},
	{Name: "Japanese Encephalitis", Manufacturer: "Valneva", BatchNumber: "JE-2024-071", ExpiryDate: date(2026, time.June, 10), Quantity: 75, MinStockLevel: 8},
	{Name: "Typhoid", Manufacturer: "Sanofi Pasteur", BatchNumber: "TYP-2024-084", ExpiryDate: date(2026, time.May, 22), Quantity: 95, MinStockLevel: 10},
}
