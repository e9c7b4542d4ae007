/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: templates.go
Description: HTML template for the triage dashboard.
*/

package reporting

// dashboardTemplate is the main HTML template for the dashboard
const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background: #f5f6fa;
            color: #333;
            margin: 0;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
        }

        .header {
            background: #fff;
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 24px;
            box-shadow: 0 4px 16px rgba(0, 0, 0, 0.08);
        }

        .header h1 {
            color: #4a5568;
            margin: 0 0 8px 0;
        }

        .header p {
            color: #718096;
            margin: 4px 0;
        }

        .section {
            background: #fff;
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 24px;
            box-shadow: 0 4px 16px rgba(0, 0, 0, 0.08);
        }

        table {
            width: 100%;
            border-collapse: collapse;
        }

        th, td {
            text-align: left;
            padding: 8px 12px;
            border-bottom: 1px solid #e2e8f0;
        }

        th {
            background: #edf2f7;
        }

        .empty {
            color: #a0aec0;
            font-style: italic;
        }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>{{.Title}}</h1>
        <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
        {{with .Summary}}
        <p id="run">Run <span class="run-id">{{.RunID}}</span> ({{.Type}} seeds) took {{duration .Duration}}</p>
        {{end}}
    </div>

    {{with .Summary}}
    <div class="section">
        <h2>Seeds</h2>
        <table id="seeds">
            <thead>
            <tr><th>Fuzzer</th><th>Benchmark</th><th>Seeds</th><th>Reaching</th><th>Triggering</th><th>Crash sets</th></tr>
            </thead>
            <tbody>
            {{range .Pairs}}
            <tr><td>{{.Fuzzer}}</td><td>{{.Benchmark}}</td><td>{{.Seeds}}</td><td>{{.Reaching}}</td><td>{{.Triggering}}</td><td>{{.CrashSets}}</td></tr>
            {{end}}
            </tbody>
        </table>
    </div>
    {{end}}

    <div class="section">
        <h2>Crashes</h2>
        {{if .Counts}}
        <table id="counts">
            <thead>
            <tr><th>Fuzzer</th><th>Benchmark</th><th>Trials</th><th>Median individual</th><th>Median combined</th></tr>
            </thead>
            <tbody>
            {{range .Counts}}
            <tr><td>{{.Fuzzer}}</td><td>{{.Benchmark}}</td><td>{{len .Trials}}</td><td>{{median .MedianIndividual}}</td><td>{{median .MedianCombined}}</td></tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <p class="empty">No crash counts.</p>
        {{end}}
    </div>

    <div class="section">
        <h2>Injections</h2>
        {{if .Injections}}
        <table id="injections">
            <thead>
            <tr><th>Injection</th><th>Crashes alone</th><th>Crashes combined</th></tr>
            </thead>
            <tbody>
            {{range .Injections}}
            <tr><td>{{.ID}}</td><td>{{join .Individual}}</td><td>{{join .Combined}}</td></tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <p class="empty">No crashing injections.</p>
        {{end}}
    </div>
</div>
</body>
</html>
`
