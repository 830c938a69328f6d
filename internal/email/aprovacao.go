package email

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
	"time"
)

const assuntoAprovacao = "Consulta Psicológica Aprovada - NEXT Implementos"

var meses = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// DataPorExtenso formata YYYY-MM-DD como "02 de janeiro de 2006". Datas inválidas voltam como vieram.
func DataPorExtenso(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02") + " de " + meses[t.Month()-1] + " de " + t.Format("2006")
}

type Aprovacao struct {
	To              string
	NomeFuncionario string
	Data            string // YYYY-MM-DD
	Horario         string
}

var textoAprovacao = template.Must(template.New("texto").Parse(`Olá, {{.Nome}}!

Sua solicitação de atendimento psicológico foi aprovada pela equipe de psicologia da NEXT Implementos.

DETALHES DA CONSULTA:
Data: {{.Data}}
Horário: {{.Horario}}

Por favor, compareça no horário agendado. Caso não possa comparecer, entre em contato com antecedência.

Estamos aqui para apoiá-lo(a)!

NEXT Implementos
Equipe de Psicologia`))

var htmlAprovacao = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
    .info-box { background-color: white; padding: 20px; margin: 20px 0; border-left: 4px solid #2563eb; border-radius: 4px; }
    .footer { text-align: center; margin-top: 20px; color: #6b7280; font-size: 14px; }
    .highlight { font-size: 18px; font-weight: bold; color: #2563eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>Consulta Aprovada!</h1></div>
    <div class="content">
      <p>Olá, <strong>{{.Nome}}</strong>!</p>
      <p>Sua solicitação de atendimento psicológico foi aprovada pela equipe de psicologia da NEXT Implementos.</p>
      <div class="info-box">
        <h2>Detalhes da Consulta</h2>
        <p><strong>Data:</strong> <span class="highlight">{{.Data}}</span></p>
        <p><strong>Horário:</strong> <span class="highlight">{{.Horario}}</span></p>
      </div>
      <p>Por favor, compareça no horário agendado. Caso não possa comparecer, entre em contato com antecedência.</p>
      <p>Estamos aqui para apoiá-lo(a)!</p>
      <div class="footer">
        <p><strong>NEXT Implementos</strong><br>Equipe de Psicologia</p>
        <p style="font-size: 12px; margin-top: 20px;">Este é um email automático, por favor não responda.</p>
      </div>
    </div>
  </div>
</body>
</html>`))

// RenderAprovacao devolve assunto, texto e HTML do e-mail de confirmação.
func RenderAprovacao(a Aprovacao) (subject, text, html string, err error) {
	data := map[string]string{
		"Nome":    a.NomeFuncionario,
		"Data":    DataPorExtenso(a.Data),
		"Horario": a.Horario,
	}
	var tb, hb bytes.Buffer
	if err := textoAprovacao.Execute(&tb, data); err != nil {
		return "", "", "", err
	}
	if err := htmlAprovacao.Execute(&hb, data); err != nil {
		return "", "", "", err
	}
	return assuntoAprovacao, tb.String(), hb.String(), nil
}

// SendAprovacao envia a confirmação da consulta aprovada ao funcionário.
func (m *Mailer) SendAprovacao(a Aprovacao) error {
	subject, text, html, err := RenderAprovacao(a)
	if err != nil {
		return err
	}
	return m.Send(a.To, subject, text, html)
}
