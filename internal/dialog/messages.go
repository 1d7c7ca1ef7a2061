package dialog

import (
	"fmt"
	"strings"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/catalog"
)

// Messages holds the patient-facing prompts of the booking flow.
type Messages struct {
	AskExistingTreatment  string
	HasExistingTreatment  string
	AskAppointmentType    string
	AskComplaintDetail    string
	AskDate               string
	UseCalendar           string
	DateNotAvailable      string
	NoSlotsOnDate         string
	AskTime               string
	UseHourPicker         string
	TimeNotAvailable      string
	AskName               string
	AskPhone              string
	AskEmail              string
	AskConfirmation       string
	Booked                string
	BookingCancelled      string
	SlotConflict          string
	PersistenceFailure    string
	TreatmentMenuReprompt string
	EmptyAnswer           string
}

// DefaultMessages returns the Spanish prompts with the clinic phone filled in.
func DefaultMessages(clinicPhone string) Messages {
	return Messages{
		AskExistingTreatment:  "¡Con gusto le ayudo a solicitar una cita! Antes de nada, ¿ya tiene un tratamiento abierto con nuestra clínica?",
		HasExistingTreatment:  fmt.Sprintf("Perfecto. Para gestionar su cita dentro de un tratamiento existente, por favor llámenos directamente al %s. Nuestro equipo le ayudará a programar su próxima visita.", clinicPhone),
		AskAppointmentType:    "Entendido, le ayudo a solicitar una nueva cita. ¿Desea una revisión general o viene por un padecimiento o dolor específico?",
		AskComplaintDetail:    "Cuéntenos brevemente qué le ocurre para que el especialista pueda prepararse.",
		AskDate:               "Por favor, seleccione en el calendario el día que prefiera.",
		UseCalendar:           "Para elegir el día, por favor utilice el calendario.",
		DateNotAvailable:      "Ese día no está disponible. Por favor, elija otro día en el calendario.",
		NoSlotsOnDate:         "No quedan horas libres el %s. Por favor, elija otro día.",
		AskTime:               "Estas son las horas disponibles para el %s. Seleccione la que prefiera.",
		UseHourPicker:         "Para elegir la hora, por favor utilice el selector de horas.",
		TimeNotAvailable:      "Esa hora ya no está disponible. Por favor, elija otra de la lista.",
		AskName:               "Perfecto. ¿Cuál es su nombre completo?",
		AskPhone:              "Gracias. ¿Cuál es su número de teléfono de contacto?",
		AskEmail:              "¿Y su correo electrónico?",
		AskConfirmation:       "Por favor, revise los datos de su cita:\n%s\n¿Confirma la cita?",
		Booked:                "¡Su cita ha sido registrada! Número de cita: %d. Le esperamos el %s a las %s.",
		BookingCancelled:      "De acuerdo, no hemos registrado la cita. Si necesita algo más, aquí estoy.",
		SlotConflict:          "Lo sentimos, esa hora acaba de ser reservada por otro paciente. Por favor, elija otra hora.",
		PersistenceFailure:    fmt.Sprintf("Lo sentimos, no hemos podido registrar su cita en este momento. Por favor, llámenos al %s y le atenderemos encantados.", clinicPhone),
		TreatmentMenuReprompt: "No he reconocido ese tratamiento. Puede consultar: %s. También puede pedir una cita o volver al menú principal.",
		EmptyAnswer:           "No he recibido ninguna respuesta. ¿Podría escribirla de nuevo?",
	}
}

// Summary renders the draft for the confirmation step.
func (m Messages) Summary(d Draft) string {
	lines := []string{
		"- Tipo de cita: " + d.Kind.Label(),
	}
	if d.Kind == appointments.KindSpecificComplaint && d.ComplaintDetail != "" {
		lines = append(lines, "- Motivo: "+d.ComplaintDetail)
	}
	lines = append(lines,
		"- Fecha: "+d.Date,
		"- Hora: "+d.Time,
		"- Nombre: "+d.FullName,
		"- Teléfono: "+d.Phone,
		"- Email: "+d.Email,
	)
	return fmt.Sprintf(m.AskConfirmation, strings.Join(lines, "\n"))
}

func (m Messages) treatmentList(entries []catalog.Entry) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Title
		if name == "" {
			name = e.Key
		}
		names = append(names, name)
	}
	return fmt.Sprintf(m.TreatmentMenuReprompt, strings.Join(names, ", "))
}
