package classify

const (
	// DefaultVersion identifies the built-in dictionaries.
	DefaultVersion = "2024.2"

	ModalityConsultaExterna = "Consulta Externa"
	ModalityLaboratorio     = "Laboratorio"
	ModalityImagenologia    = "Imagenología"
	ModalityQuimioterapia   = "Quimioterapia"
	ModalityRadioterapia    = "Radioterapia"
	ModalityClinicaDolor    = "Clínica del Dolor"
	ModalityEstancia        = "Estancia"
	ModalityCirugia         = "Cirugía"
	ModalityOncologia       = "Oncología"
	ModalityOtros           = "Otros"
	ModalityProcedimientos  = "Procedimientos y Dispositivos"
	ModalityPaquetes        = "Paquetes"
)

// DefaultTaxonomy returns the built-in dictionaries. Each call returns a new
// value; callers may modify it freely. Keywords are matched against the
// upper-cased, accent-free service name padded with one space on each side.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Modalities: Dictionary{Version: DefaultVersion, Rules: []Rule{
			{ModalityConsultaExterna, []string{"CONSULTA", "INTERCONSULTA", "VALORACION", "CONTROL", "JUNTA MEDICA", "TELEMEDICINA"}},
			{ModalityLaboratorio, []string{"LABORATORIO", "HEMOGRAMA", "CREATININA", "GLUCOSA", "BILIRRUBINA", "TRANSAMINASA", "ELECTROLITOS", "UROANALISIS", "ANTIGENO", "MARCADOR TUMORAL", "INMUNOHISTOQUIMICA", "PATOLOGIA", "CITOLOGIA", "CULTIVO", "HORMONA", "PERFIL", "TIEMPO DE PROTROMBINA"}},
			{ModalityImagenologia, []string{"MAMOGRAFIA", "ECOGRAFIA", "TOMOGRAFIA", "RESONANCIA", "RADIOGRAFIA", " RX ", " TAC ", " PET ", "GAMMAGRAFIA", "DENSITOMETRIA", "ECOCARDIOGRAMA", "ANGIOGRAFIA", "IMAGEN"}},
			{ModalityQuimioterapia, []string{"QUIMIOTERAPIA", "QUIMIO", "ANTINEOPLASIC", "INMUNOTERAPIA", "HORMONOTERAPIA", "TERAPIA BIOLOGICA", "CICLO"}},
			{ModalityRadioterapia, []string{"RADIOTERAPIA", "TELETERAPIA", "BRAQUITERAPIA", "RADIOCIRUGIA", " IMRT ", "ACELERADOR LINEAL", "SIMULACION"}},
			{ModalityClinicaDolor, []string{"DOLOR", "PALIATIV", "ANALGESI", "BLOQUEO"}},
			{ModalityEstancia, []string{"ESTANCIA", "HOSPITALIZACION", "INTERNACION", "HABITACION", "CUIDADO INTENSIVO", " UCI "}},
			{ModalityCirugia, []string{"CIRUGIA", "QUIRURGIC", "ECTOMIA", "RESECCION", "EXCISION", "BIOPSIA", "LAPAROSCOPIA", "PLASTIA"}},
			{ModalityOncologia, []string{"ONCOLOG", "HEMATOLOG", "TUMOR", "NEOPLASIA"}},
			{ModalityOtros, []string{"TRASLADO", "TRANSPORTE", "AMBULANCIA", "ALOJAMIENTO", "ALIMENTACION"}},
		}},
		Fallbacks: Dictionary{Version: DefaultVersion, Rules: []Rule{
			{ModalityProcedimientos, []string{"PROCEDIMIENTO", "DISPOSITIVO", "CATETER", "INSUMO", "PROTESIS"}},
			{ModalityPaquetes, []string{"PAQUETE", " KIT ", "CANASTA"}},
		}},
		Default: ModalityOncologia,
		Cohorts: Dictionary{Version: DefaultVersion, Rules: []Rule{
			{"1= CAC Mama", []string{"MAMOGRAFIA", "MAMA", "MAMARIA", "MASTECTOMIA", " C50"}},
			{"2= CAC Próstata", []string{"PROSTATA", "PROSTATIC", " PSA ", " C61"}},
			{"3= CAC Cérvix", []string{"CERVIX", "CUELLO UTERINO", "CERVICOUTERINO", "COLPOSCOPIA", " C53"}},
			{"4= CAC Colon y Recto", []string{"COLON", "COLORRECTAL", " RECTO ", "RECTAL", "SIGMOID", " C18", " C19", " C20"}},
			{"5= CAC Estómago", []string{"ESTOMAGO", "GASTRIC", "GASTRECTOMIA", " C16"}},
			{"6= CAC Pulmón", []string{"PULMON", "BRONQU", " C34"}},
			{"7= CAC Melanoma", []string{"MELANOMA", " C43"}},
			{"8= CAC Linfoma No Hodgkin", []string{"NO HODGKIN", " LNH ", " C82", " C83", " C85"}},
			{"9= CAC Linfoma Hodgkin", []string{"HODGKIN", " C81"}},
			{"10= CAC Leucemia Linfoide Aguda", []string{"LEUCEMIA LINFOIDE AGUDA", "LEUCEMIA LINFOBLASTICA", " C91.0"}},
			{"11= CAC Leucemia Mieloide Aguda", []string{"LEUCEMIA MIELOIDE AGUDA", "LEUCEMIA MIELOBLASTICA", "LEUCEMIA PROMIELOCITICA", " C92.0"}},
			{"12= Leucemias crónicas", []string{"LEUCEMIA LINFOCITICA CRONICA", "LEUCEMIA MIELOIDE CRONICA", "LEUCEMIA CRONICA", " C91.1", " C92.1"}},
			{"13= Mieloma múltiple", []string{"MIELOMA", " C90"}},
			{"14= Tiroides", []string{"TIROIDES", "TIROIDEO", "TIROIDECTOMIA", " C73"}},
			{"15= Hígado y vías biliares", []string{"HIGADO", "HEPATIC", "HEPATOCARCINOMA", "VIAS BILIARES", "VESICULA", "COLANGIO", " C22"}},
			{"16= Páncreas", []string{"PANCREA", " C25"}},
			{"17= Esófago", []string{"ESOFAG", " C15"}},
			{"18= Riñón", []string{"RINON", "NEFRECTOMIA", "CARCINOMA RENAL", " C64"}},
			{"19= Vejiga", []string{"VEJIGA", "VESICAL", "CISTOSCOPIA", " C67"}},
			{"20= Ovario", []string{"OVARIO", "OVARIC", " C56"}},
			{"21= Endometrio y útero", []string{"ENDOMETRIO", "UTERO", "HISTERECTOMIA", " C54"}},
			{"22= Cabeza y cuello", []string{"LARINGE", "FARINGE", "CAVIDAD ORAL", "LENGUA", "AMIGDALA", "CABEZA Y CUELLO", "PAROTIDA", " C32"}},
			{"23= Sistema nervioso central", []string{"CEREBR", "ENCEFAL", "GLIOMA", "GLIOBLASTOMA", "SISTEMA NERVIOSO", " C71"}},
			{"24= Sarcomas", []string{"SARCOMA", " C49"}},
			{"25= Tumores secundarios", []string{"METASTASI", "TUMOR SECUNDARIO", "NEOPLASIA SECUNDARIA", " C77", " C78", " C79"}},
		}},
	}
}
