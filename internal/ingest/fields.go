package ingest

import (
	"strings"

	"github.com/oncofollow/oncofollow/pkg/textnorm"
)

// Field is a canonical column of the follow-up source files.
type Field string

const (
	FieldDoc           Field = "doc"
	FieldTipoDoc       Field = "tipo_doc"
	FieldNom1          Field = "nom1"
	FieldNom2          Field = "nom2"
	FieldApe1          Field = "ape1"
	FieldApe2          Field = "ape2"
	FieldTel           Field = "tel"
	FieldEmail         Field = "email"
	FieldEPS           Field = "eps"
	FieldEdad          Field = "edad"
	FieldFechaNac      Field = "fecha_nac"
	FieldGenero        Field = "genero"
	FieldCiudad        Field = "ciudad"
	FieldDepto         Field = "depto"
	FieldFechaAten     Field = "fecha_aten"
	FieldFechaCita     Field = "fecha_cita"
	FieldCups          Field = "cups"
	FieldServicio      Field = "servicio"
	FieldEstadoCita    Field = "estado_cita"
	FieldTipoNota      Field = "tipo_nota"
	FieldNotaRealizada Field = "nota_realizada"
	FieldObs           Field = "obs"
	FieldBarrera       Field = "barrera"
	FieldResponsable   Field = "responsable"
	FieldTipoCaso      Field = "tipo_caso"
)

// fieldAliases lists, per field, the normalized header fragments that
// identify it. Order matters: earlier aliases win.
var fieldAliases = map[Field][]string{
	FieldDoc:           {"numero_de_identificacion", "numero_identificacion", "identificacion", "numero_de_documento", "numero_documento", "no_documento", "nro_documento", "documento", "cedula", "num_doc", "nro_doc"},
	FieldTipoDoc:       {"tipo_de_documento", "tipo_documento", "tipo_de_identificacion", "tipo_identificacion", "tipo_id", "tipo_doc"},
	FieldNom1:          {"primer_nombre", "nombre_1", "nombre1", "nombres", "nombre_del_paciente", "nombre_paciente", "nombre_completo"},
	FieldNom2:          {"segundo_nombre", "nombre_2", "nombre2"},
	FieldApe1:          {"primer_apellido", "apellido_1", "apellido1", "apellidos"},
	FieldApe2:          {"segundo_apellido", "apellido_2", "apellido2"},
	FieldTel:           {"telefono", "celular", "movil", "tel"},
	FieldEmail:         {"correo", "email", "e_mail"},
	FieldEPS:           {"eps", "aseguradora", "asegurador", "entidad", "pagador", "convenio"},
	FieldEdad:          {"edad"},
	FieldFechaNac:      {"fecha_de_nacimiento", "fecha_nacimiento", "nacimiento"},
	FieldGenero:        {"genero", "sexo"},
	FieldCiudad:        {"ciudad", "municipio"},
	FieldDepto:         {"departamento", "depto"},
	FieldFechaAten:     {"fecha_de_la_solicitud", "fecha_de_solicitud", "fecha_solicitud", "fecha_de_atencion", "fecha_atencion", "fecha_de_la_orden", "fecha_orden", "fecha_de_registro", "fecha_registro"},
	FieldFechaCita:     {"fecha_de_la_cita", "fecha_de_cita", "fecha_cita", "fecha_asignada", "fecha_programada", "fecha_agenda"},
	FieldCups:          {"cups", "codigo_del_servicio", "codigo_servicio", "cod_servicio", "codigo_procedimiento"},
	FieldServicio:      {"nombre_del_servicio", "descripcion_del_servicio", "servicio", "procedimiento", "descripcion_cups", "descripcion", "examen"},
	FieldEstadoCita:    {"estado_de_la_cita", "estado_cita", "estado_de_la_solicitud", "estado_solicitud", "estado"},
	FieldTipoNota:      {"tipo_de_nota", "tipo_nota"},
	FieldNotaRealizada: {"nota_realizada", "nota_completada", "realizada"},
	FieldObs:           {"observaciones", "observacion", "comentarios", "comentario", "notas"},
	FieldBarrera:       {"barrera"},
	FieldResponsable:   {"responsable", "gestor"},
	FieldTipoCaso:      {"tipo_de_caso", "tipo_caso"},
}

// fieldExclusions keeps a field away from headers that contain its alias
// but name a different column.
var fieldExclusions = map[Field][]string{
	FieldDoc:      {"tipo"},
	FieldCups:     {"descripcion", "nombre"},
	FieldServicio: {"codigo", "cod_"},
}

// Cell is one column of a source row under its normalized header.
type Cell struct {
	Header string
	Value  string
}

// Row keeps cells in source column order so header resolution is
// deterministic.
type Row struct {
	Line  int
	Cells []Cell
}

// Resolve returns the value of field f in row, or "" when no header matches.
// A header matches when it contains one of the field's aliases; aliases are
// tried in order and, for each alias, headers in column order.
func (r Row) Resolve(f Field) string {
	for _, alias := range fieldAliases[f] {
		for _, c := range r.Cells {
			key := textnorm.HeaderKey(c.Header)
			if excluded(f, key) {
				continue
			}
			if strings.Contains(key, alias) {
				return c.Value
			}
		}
	}
	return ""
}

func excluded(f Field, key string) bool {
	for _, x := range fieldExclusions[f] {
		if strings.Contains(key, x) {
			return true
		}
	}
	return false
}
