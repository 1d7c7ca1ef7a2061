package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// AppointmentNotifier emails the clinic inbox for every new request.
type AppointmentNotifier struct {
	email      EmailSender
	to         string
	clinicName string
	logger     *logging.Logger
}

// NewAppointmentNotifier returns nil when there is no sender or recipient,
// which callers treat as notifications disabled.
func NewAppointmentNotifier(email EmailSender, to, clinicName string, logger *logging.Logger) *AppointmentNotifier {
	if email == nil || strings.TrimSpace(to) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentNotifier{email: email, to: to, clinicName: clinicName, logger: logger}
}

// AppointmentBooked implements appointments.Notifier.
func (n *AppointmentNotifier) AppointmentBooked(ctx context.Context, appt appointments.Appointment) error {
	msg := EmailMessage{
		To:       n.to,
		ToName:   n.clinicName,
		ReplyTo:  appt.Email,
		Subject:  fmt.Sprintf("Nueva solicitud de cita #%d: %s %s", appt.ID, appt.Date, appt.Time),
		Body:     appointmentText(appt),
		HTML:     appointmentHTML(appt),
		Category: bookingCategory,
	}
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: appointment %d: %w", appt.ID, err)
	}
	n.logger.Debug("appointment notification sent", "appointment_id", appt.ID)
	return nil
}

func appointmentFields(appt appointments.Appointment) [][2]string {
	fields := [][2]string{
		{"Número de cita", fmt.Sprintf("%d", appt.ID)},
		{"Paciente", appt.FullName},
		{"Teléfono", appt.Phone},
		{"Email", appt.Email},
		{"Tipo de cita", appt.Kind.Label()},
	}
	if appt.ComplaintDetail != "" {
		fields = append(fields, [2]string{"Motivo", appt.ComplaintDetail})
	}
	return append(fields,
		[2]string{"Fecha", appt.Date},
		[2]string{"Hora", appt.Time},
		[2]string{"Estado", string(appt.Status)},
	)
}

func appointmentText(appt appointments.Appointment) string {
	var b strings.Builder
	b.WriteString("Se ha registrado una nueva solicitud de cita desde el asistente.\n\n")
	for _, f := range appointmentFields(appt) {
		fmt.Fprintf(&b, "%s: %s\n", f[0], f[1])
	}
	b.WriteString("\nRecuerde confirmar la cita con el paciente.")
	return b.String()
}

func appointmentHTML(appt appointments.Appointment) string {
	var b strings.Builder
	b.WriteString("<p>Se ha registrado una nueva solicitud de cita desde el asistente.</p><table>")
	for _, f := range appointmentFields(appt) {
		fmt.Fprintf(&b, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", html.EscapeString(f[0]), html.EscapeString(f[1]))
	}
	b.WriteString("</table><p>Recuerde confirmar la cita con el paciente.</p>")
	return b.String()
}

var _ appointments.Notifier = (*AppointmentNotifier)(nil)
