package service

import (
	"context"
	"errors"
	"strings"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

// TemplateService BOM templates. Global templates have no owner.
type TemplateService struct {
	repos *repository.Repositories
}

func NewTemplateService(repos *repository.Repositories) *TemplateService {
	return &TemplateService{repos: repos}
}

// TemplateInput create/update payload. Nil fields are left unchanged on update.
type TemplateInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Schema      *entity.JSONB `json:"schema"`
}

func (s *TemplateService) List(ctx context.Context, actor Actor, page repository.Page) ([]entity.BomTemplate, int64, error) {
	return s.repos.Bom.ListTemplates(ctx, actor.ID, page)
}

func (s *TemplateService) visible(ctx context.Context, actor Actor, id string) (*entity.BomTemplate, error) {
	t, err := s.repos.Bom.FindTemplate(ctx, id)
	if err != nil {
		return nil, lookup(err, "template")
	}
	if !t.IsGlobal() && deref(t.OwnerID) != actor.ID && !actor.IsAdmin() {
		return nil, notFound("template")
	}
	return t, nil
}

func (s *TemplateService) Get(ctx context.Context, actor Actor, id string) (*entity.BomTemplate, error) {
	return s.visible(ctx, actor, id)
}

func (s *TemplateService) Create(ctx context.Context, actor Actor, in TemplateInput) (*entity.BomTemplate, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("name is required")
	}
	t := &entity.BomTemplate{
		ID:      entity.NewID(),
		OwnerID: strPtr(actor.ID),
		Name:    strings.TrimSpace(*in.Name),
		Schema:  entity.JSONB{},
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Schema != nil && *in.Schema != nil {
		t.Schema = *in.Schema
	}
	if err := s.repos.Bom.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update edits a template. A non-admin editing a global template gets a
// private copy instead; copied reports that case.
func (s *TemplateService) Update(ctx context.Context, actor Actor, id string, in TemplateInput) (t *entity.BomTemplate, copied bool, err error) {
	t, err = s.visible(ctx, actor, id)
	if err != nil {
		return nil, false, err
	}
	if t.IsGlobal() && !actor.IsAdmin() {
		clone := &entity.BomTemplate{
			ID:          entity.NewID(),
			OwnerID:     strPtr(actor.ID),
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		}
		if err := applyTemplateInput(clone, in); err != nil {
			return nil, false, err
		}
		if err := s.repos.Bom.CreateTemplate(ctx, clone); err != nil {
			return nil, false, err
		}
		return clone, true, nil
	}
	if !t.IsGlobal() && deref(t.OwnerID) != actor.ID && !actor.IsAdmin() {
		return nil, false, forbidden("only the template owner can edit it")
	}
	if err := applyTemplateInput(t, in); err != nil {
		return nil, false, err
	}
	if err := s.repos.Bom.UpdateTemplate(ctx, t); err != nil {
		return nil, false, err
	}
	return t, false, nil
}

func applyTemplateInput(t *entity.BomTemplate, in TemplateInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name cannot be empty")
		}
		t.Name = name
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Schema != nil {
		t.Schema = *in.Schema
		if t.Schema == nil {
			t.Schema = entity.JSONB{}
		}
	}
	return nil
}

func (s *TemplateService) Delete(ctx context.Context, actor Actor, id string) error {
	t, err := s.visible(ctx, actor, id)
	if err != nil {
		return err
	}
	if t.IsGlobal() {
		if !actor.IsAdmin() {
			return forbidden("only admins can delete global templates")
		}
	} else if deref(t.OwnerID) != actor.ID && !actor.IsAdmin() {
		return forbidden("only the template owner can delete it")
	}
	return s.repos.Bom.DeleteTemplate(ctx, t.ID)
}

// ==================== Seed ====================

// SeedGlobal upserts the built-in global templates by name.
func (s *TemplateService) SeedGlobal(ctx context.Context) (created, updated int, err error) {
	for _, def := range globalTemplates() {
		existing, err := s.repos.Bom.FindGlobalTemplateByName(ctx, def.Name)
		switch {
		case err == nil:
			existing.Description = def.Description
			existing.Schema = def.Schema
			if err := s.repos.Bom.UpdateTemplate(ctx, existing); err != nil {
				return created, updated, err
			}
			updated++
		case errors.Is(err, repository.ErrNotFound):
			def.ID = entity.NewID()
			if err := s.repos.Bom.CreateTemplate(ctx, &def); err != nil {
				return created, updated, err
			}
			created++
		default:
			return created, updated, err
		}
	}
	return created, updated, nil
}

type field struct {
	key, label, kind string
	options          []string
}

func fields(defs ...field) []interface{} {
	out := make([]interface{}, 0, len(defs))
	for _, d := range defs {
		f := map[string]interface{}{"key": d.key, "label": d.label, "type": d.kind}
		if len(d.options) > 0 {
			opts := make([]interface{}, len(d.options))
			for i, o := range d.options {
				opts[i] = o
			}
			f["options"] = opts
		}
		out = append(out, f)
	}
	return out
}

var (
	commonBomFields = []field{
		{"needed_by", "Needed By", "date", nil},
		{"department", "Department", "text", nil},
		{"budget_code", "Budget Code", "text", nil},
		{"priority", "Priority", "select", []string{"Low", "Medium", "High"}},
	}
	commonItemFields = []field{
		{"mfr", "Manufacturer", "text", nil},
		{"mpn", "MPN", "text", nil},
		{"supplier_sku", "Supplier SKU", "text", nil},
		{"lead_time", "Lead Time", "text", nil},
		{"notes", "Notes", "textarea", nil},
	}
	purposeField = field{"purpose", "Purpose", "textarea", nil}
	linkField    = field{"link", "Link", "url", nil}
)

func with(base []field, extra ...field) []field {
	out := make([]field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func sampleItem(name, description string, qty float64, unit string, price float64, vendor, category, link string, data map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"quantity":    qty,
		"unit":        unit,
		"currency":    "USD",
		"unit_price":  price,
		"tax_percent": 5,
		"vendor":      vendor,
		"category":    category,
		"link":        link,
		"data":        data,
	}
}

func schema(bomFields, itemFields []field, sampleBom map[string]interface{}, samples ...map[string]interface{}) entity.JSONB {
	items := make([]interface{}, len(samples))
	for i, s := range samples {
		items[i] = s
	}
	return entity.JSONB{
		"version":      1,
		"bom_fields":   fields(bomFields...),
		"item_fields":  fields(itemFields...),
		"sample_bom":   sampleBom,
		"sample_items": items,
	}
}

func globalTemplates() []entity.BomTemplate {
	engineering := func(extra map[string]interface{}) map[string]interface{} {
		m := map[string]interface{}{
			"needed_by":   "2026-02-15",
			"department":  "Engineering",
			"budget_code": "ENG-PROT-2026",
			"priority":    "High",
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	return []entity.BomTemplate{
		{
			Name:        "Quick Purchase",
			Description: "A minimal purchase request template.",
			Schema: schema([]field{purposeField}, []field{linkField},
				map[string]interface{}{"purpose": "Quick restock for lab bench supplies and consumables."},
				sampleItem("Jumper Wire Kit (120 pcs)", "Assorted jumper wires for breadboard prototyping.", 1, "kit", 9.99,
					"Amazon", "Lab Supplies", "https://www.amazon.com/dp/B01EV70C78",
					map[string]interface{}{"link": "https://www.amazon.com/dp/B01EV70C78"})),
		},
		{
			Name:        "Mid Purchase",
			Description: "A balanced template for typical purchases.",
			Schema: schema([]field{purposeField}, with(commonItemFields, linkField),
				map[string]interface{}{"purpose": "Board bring-up parts for pilot run."},
				sampleItem("STM32 Nucleo-64 Board", "Development board for STM32F401RE.", 5, "pcs", 12.50,
					"Digi-Key", "Development Boards", "https://www.digikey.com/en/products/detail/stmicroelectronics/NUCLEO-F401RE/4869161",
					map[string]interface{}{"mfr": "STMicroelectronics", "mpn": "NUCLEO-F401RE", "supplier_sku": "497-16190-ND", "lead_time": "1-2 weeks"})),
		},
		{
			Name:        "Large Purchase",
			Description: "A detailed template for larger purchases.",
			Schema: schema(with(commonBomFields, purposeField),
				with(commonItemFields, field{"datasheet", "Datasheet URL", "url", nil}, field{"alt_part", "Alternate Part", "text", nil}),
				engineering(map[string]interface{}{"purpose": "Prototype run for new controller board."}),
				sampleItem("TPS7A4700RGWT", "1A, low-noise LDO regulator.", 20, "pcs", 3.25,
					"Mouser", "Power", "https://www.mouser.com/ProductDetail/Texas-Instruments/TPS7A4700RGWT",
					map[string]interface{}{"mfr": "Texas Instruments", "mpn": "TPS7A4700RGWT", "lead_time": "4 weeks", "alt_part": "TPS7A4701RGWT"})),
		},
		{
			Name:        "Embedded",
			Description: "Template for embedded electronics procurement.",
			Schema: schema(with(commonBomFields, field{"target_platform", "Target Platform", "text", nil}),
				with(commonItemFields, field{"package", "Package", "text", nil}, field{"temp_grade", "Temp Grade", "text", nil}),
				engineering(map[string]interface{}{"target_platform": "STM32F4"}),
				sampleItem("STM32F401RET6", "ARM Cortex-M4 MCU, 512KB Flash.", 10, "pcs", 6.80,
					"Digi-Key", "Microcontrollers", "https://www.digikey.com/en/products/detail/stmicroelectronics/STM32F401RET6/4755958",
					map[string]interface{}{"mfr": "STMicroelectronics", "mpn": "STM32F401RET6", "package": "LQFP-64", "temp_grade": "Industrial"})),
		},
		{
			Name:        "IoT",
			Description: "Template for IoT hardware procurement.",
			Schema: schema(with(commonBomFields, field{"connectivity", "Connectivity", "text", nil}),
				with(commonItemFields, field{"certs", "Certifications", "text", nil}),
				engineering(map[string]interface{}{"connectivity": "Wi-Fi + BLE"}),
				sampleItem("ESP32-WROOM-32E", "Wi-Fi and Bluetooth module.", 25, "pcs", 3.10,
					"Mouser", "RF Modules", "https://www.mouser.com/ProductDetail/Espressif-Systems/ESP32-WROOM-32E-N4",
					map[string]interface{}{"mfr": "Espressif", "mpn": "ESP32-WROOM-32E-N4", "certs": "FCC, CE"})),
		},
		{
			Name:        "Network",
			Description: "Template for networking equipment procurement.",
			Schema: schema(with(commonBomFields, field{"network_type", "Network Type", "text", nil}),
				with(commonItemFields, field{"speed", "Speed", "text", nil}),
				engineering(map[string]interface{}{"network_type": "Lab LAN"}),
				sampleItem("Managed Switch 24-Port", "24-port gigabit managed switch.", 2, "pcs", 219.00,
					"CDW", "Networking", "https://www.cdw.com/",
					map[string]interface{}{"speed": "1 Gbps", "lead_time": "1 week"})),
		},
		{
			Name:        "Amazon",
			Description: "Template for Amazon purchases.",
			Schema: schema(with(commonBomFields, field{"po_ref", "PO Ref", "text", nil}),
				[]field{{"asin", "ASIN", "text", nil}, linkField, {"notes", "Notes", "textarea", nil}},
				engineering(map[string]interface{}{"po_ref": "AMZ-PO-1042"}),
				sampleItem("Anker 8-in-1 USB-C Hub", "USB-C hub with HDMI and Ethernet.", 5, "pcs", 49.99,
					"Amazon", "Accessories", "https://www.amazon.com/dp/B07ZVKTP53",
					map[string]interface{}{"asin": "B07ZVKTP53", "link": "https://www.amazon.com/dp/B07ZVKTP53"})),
		},
		{
			Name:        "Digi-Key",
			Description: "Template for Digi-Key component purchases.",
			Schema: schema(with(commonBomFields, field{"po_ref", "PO Ref", "text", nil}),
				with(commonItemFields, field{"digikey_part_number", "Digi-Key Part Number", "text", nil}, linkField),
				engineering(map[string]interface{}{"po_ref": "DK-PO-3381"}),
				sampleItem("ATmega328P-AU", "8-bit AVR MCU, 32KB Flash.", 25, "pcs", 2.65,
					"Digi-Key", "Microcontrollers", "https://www.digikey.com/en/products/detail/microchip-technology/ATMEGA328P-AU/1914589",
					map[string]interface{}{"mfr": "Microchip", "mpn": "ATMEGA328P-AU", "digikey_part_number": "ATMEGA328P-AU-ND"})),
		},
	}
}
